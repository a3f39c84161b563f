// Package sqlstore implements the row store on Postgres. Rows live in a
// single sheet_rows table keyed by (sheet, row_key) with cells stored as a
// JSON array, preserving the spreadsheet shape the services expect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/studbot/bot/storage/rowstore"
	"github.com/m3rciful/studbot/core/logger"
	"log/slog"
)

// Store is a rowstore.Store and rowstore.Creator over sqlx/Postgres.
type Store struct {
	db *sqlx.DB
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// EnsureSheets creates the named sheets if they do not exist yet. Called at
// startup so a fresh database serves the configured course sheets.
func (s *Store) EnsureSheets(ctx context.Context, names ...string) error {
	for _, name := range names {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO sheets (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("sqlstore: ensure sheet %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) sheetExists(ctx context.Context, q sqlx.QueryerContext, sheet string) error {
	var name string
	err := sqlx.GetContext(ctx, q, &name, `SELECT name FROM sheets WHERE name = $1`, sheet)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: sheet %s", rowstore.ErrNotFound, sheet)
	}
	if err != nil {
		return fmt.Errorf("sqlstore: sheet lookup: %w", err)
	}
	return nil
}

// GetRow returns the row with the given key.
func (s *Store) GetRow(ctx context.Context, sheet, key string) (rowstore.Row, error) {
	if err := s.sheetExists(ctx, s.db, sheet); err != nil {
		return nil, err
	}
	var raw []byte
	err := s.db.GetContext(ctx, &raw,
		`SELECT cells FROM sheet_rows WHERE sheet = $1 AND row_key = $2`, sheet, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: row %s", rowstore.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get row: %w", err)
	}
	return decodeCells(raw)
}

// AddRow inserts the row or replaces an existing row with the same key.
func (s *Store) AddRow(ctx context.Context, sheet string, row rowstore.Row) error {
	if row.Key() == "" {
		return fmt.Errorf("sqlstore: empty row key")
	}
	if err := s.sheetExists(ctx, s.db, sheet); err != nil {
		return err
	}
	cells, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("sqlstore: encode cells: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sheet_rows (sheet, row_key, cells) VALUES ($1, $2, $3)
		ON CONFLICT (sheet, row_key) DO UPDATE SET cells = EXCLUDED.cells`,
		sheet, row.Key(), cells)
	if err != nil {
		return fmt.Errorf("sqlstore: add row: %w", err)
	}
	return nil
}

// RemoveRow deletes the row with the given key; missing rows are a no-op.
func (s *Store) RemoveRow(ctx context.Context, sheet, key string) error {
	if err := s.sheetExists(ctx, s.db, sheet); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM sheet_rows WHERE sheet = $1 AND row_key = $2`, sheet, key); err != nil {
		return fmt.Errorf("sqlstore: remove row: %w", err)
	}
	return nil
}

// BatchUpdate writes values into one column for many keys inside a single
// transaction.
func (s *Store) BatchUpdate(ctx context.Context, sheet string, column int, values map[string]string) error {
	if column <= 0 {
		return fmt.Errorf("sqlstore: column must be positive, got %d", column)
	}
	if len(values) == 0 {
		return nil
	}

	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.sheetExists(ctx, tx, sheet); err != nil {
		return err
	}

	updated := 0
	for key, val := range values {
		var raw []byte
		err := tx.GetContext(ctx, &raw,
			`SELECT cells FROM sheet_rows WHERE sheet = $1 AND row_key = $2`, sheet, key)
		if errors.Is(err, sql.ErrNoRows) {
			continue // absent keys are skipped
		}
		if err != nil {
			return fmt.Errorf("sqlstore: batch read %s: %w", key, err)
		}
		row, err := decodeCells(raw)
		if err != nil {
			return err
		}
		for len(row) <= column {
			row = append(row, "")
		}
		row[column] = val
		cells, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("sqlstore: encode cells: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE sheet_rows SET cells = $3 WHERE sheet = $1 AND row_key = $2`,
			sheet, key, cells); err != nil {
			return fmt.Errorf("sqlstore: batch write %s: %w", key, err)
		}
		updated++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit batch: %w", err)
	}
	logger.DB.Debug("batch update",
		slog.String("event", "store.batch_update"),
		slog.String("sheet", sheet),
		slog.Int("count", updated),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// ListKeys returns all row keys in insertion order.
func (s *Store) ListKeys(ctx context.Context, sheet string) ([]string, error) {
	if err := s.sheetExists(ctx, s.db, sheet); err != nil {
		return nil, err
	}
	var keys []string
	err := s.db.SelectContext(ctx, &keys,
		`SELECT row_key FROM sheet_rows WHERE sheet = $1 ORDER BY position`, sheet)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list keys: %w", err)
	}
	return keys, nil
}

// ListRows returns all rows in insertion order.
func (s *Store) ListRows(ctx context.Context, sheet string) ([]rowstore.Row, error) {
	if err := s.sheetExists(ctx, s.db, sheet); err != nil {
		return nil, err
	}
	var raws [][]byte
	err := s.db.SelectContext(ctx, &raws,
		`SELECT cells FROM sheet_rows WHERE sheet = $1 ORDER BY position`, sheet)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list rows: %w", err)
	}
	rows := make([]rowstore.Row, 0, len(raws))
	for _, raw := range raws {
		row, err := decodeCells(raw)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// CreateSheet registers a new sheet with its header.
func (s *Store) CreateSheet(ctx context.Context, name string, header []string) error {
	encoded, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("sqlstore: encode header: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sheets (name, header) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		name, encoded)
	if err != nil {
		return fmt.Errorf("sqlstore: create sheet: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", rowstore.ErrSheetExists, name)
	}
	return nil
}

func decodeCells(raw []byte) (rowstore.Row, error) {
	var row rowstore.Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("sqlstore: decode cells: %w", err)
	}
	return row, nil
}

var (
	_ rowstore.Store   = (*Store)(nil)
	_ rowstore.Creator = (*Store)(nil)
)

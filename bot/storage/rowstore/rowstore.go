// Package rowstore defines the row-oriented storage interface shared by the
// spreadsheet, Postgres, and in-memory backends. A row is a flat list of
// cells whose first cell is the row key (the student's username for roster
// and works sheets).
package rowstore

import (
	"context"
	"errors"
)

// Row is one stored record. Cell 0 is the key.
type Row []string

// Key returns the row key.
func (r Row) Key() string {
	if len(r) == 0 {
		return ""
	}
	return r[0]
}

// Cell returns the cell at index i or "" when the row is shorter.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Clone returns an independent copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

var (
	// ErrNotFound is returned when the requested row or sheet does not exist.
	ErrNotFound = errors.New("rowstore: not found")
	// ErrSheetExists is returned when creating a sheet that already exists.
	ErrSheetExists = errors.New("rowstore: sheet already exists")
)

// Store is the single row-store surface all services talk to.
type Store interface {
	// GetRow returns the row with the given key or ErrNotFound.
	GetRow(ctx context.Context, sheet, key string) (Row, error)
	// AddRow inserts the row or replaces an existing row with the same key.
	AddRow(ctx context.Context, sheet string, row Row) error
	// RemoveRow deletes the row with the given key; missing rows are a no-op.
	RemoveRow(ctx context.Context, sheet, key string) error
	// BatchUpdate writes values into one column for many keys in a single
	// backend round trip. Keys absent from the sheet are skipped.
	BatchUpdate(ctx context.Context, sheet string, column int, values map[string]string) error
	// ListKeys returns all row keys in sheet order.
	ListKeys(ctx context.Context, sheet string) ([]string, error)
	// ListRows returns all data rows in sheet order.
	ListRows(ctx context.Context, sheet string) ([]Row, error)
}

// Creator is implemented by backends that can create new sheets with a
// header row.
type Creator interface {
	CreateSheet(ctx context.Context, name string, header []string) error
}

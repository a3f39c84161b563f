// Package deadlines serves per-discipline deadline dates. Disciplines live
// in one sheet with layout [discipline, deadline, description]; the
// description cell is owned by the subjects service.
package deadlines

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/studbot/bot/storage/rowstore"
	"github.com/m3rciful/studbot/core/logger"
)

// Sheet is the logical name of the deadlines sheet.
const Sheet = "deadlines"

// Deadlines sheet layout.
const (
	colDiscipline = iota
	colDate
	colDescription
)

// DescriptionColumn is the 0-based index of the description cell.
const DescriptionColumn = colDescription

// Header is the deadlines sheet header row.
var Header = []string{"Дисциплина", "Срок", "Описание"}

// Entry is one discipline record.
type Entry struct {
	Discipline  string
	Date        string
	Description string
}

func entryFromRow(r rowstore.Row) Entry {
	return Entry{
		Discipline:  r.Cell(colDiscipline),
		Date:        r.Cell(colDate),
		Description: r.Cell(colDescription),
	}
}

// Service provides deadline lookups over the row store.
type Service struct {
	store rowstore.Store
}

// New builds a deadlines service.
func New(store rowstore.Store) *Service {
	return &Service{store: store}
}

// List returns all discipline entries in sheet order.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.store.ListRows(ctx, Sheet)
	if err != nil {
		return nil, fmt.Errorf("deadlines: list: %w", err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, entryFromRow(r))
	}
	return entries, nil
}

// Disciplines returns the discipline names in sheet order.
func (s *Service) Disciplines(ctx context.Context) ([]string, error) {
	keys, err := s.store.ListKeys(ctx, Sheet)
	if err != nil {
		return nil, fmt.Errorf("deadlines: disciplines: %w", err)
	}
	return keys, nil
}

// Find returns the entry for a discipline, reporting presence separately
// from storage errors.
func (s *Service) Find(ctx context.Context, discipline string) (Entry, bool, error) {
	row, err := s.store.GetRow(ctx, Sheet, discipline)
	if errors.Is(err, rowstore.ErrNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("deadlines: find %s: %w", discipline, err)
	}
	return entryFromRow(row), true, nil
}

// Set upserts the deadline date for a discipline, preserving the
// description cell.
func (s *Service) Set(ctx context.Context, discipline, date string) error {
	entry, _, err := s.Find(ctx, discipline)
	if err != nil {
		return err
	}
	row := rowstore.Row{discipline, date, entry.Description}
	if err := s.store.AddRow(ctx, Sheet, row); err != nil {
		return fmt.Errorf("deadlines: set %s: %w", discipline, err)
	}
	logger.SVCDeadlines.Info("deadline set",
		slog.String("event", "deadlines.set"),
		slog.String("discipline", discipline),
	)
	return nil
}

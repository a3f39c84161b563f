// Package subjects serves discipline descriptions collected through the
// survey flow. Descriptions live in the deadlines sheet's description
// column, so both services see one consistent discipline list.
package subjects

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/studbot/bot/deadlines"
	"github.com/m3rciful/studbot/bot/storage/rowstore"
	"github.com/m3rciful/studbot/core/logger"
)

// Service provides subject description operations over the row store.
type Service struct {
	store rowstore.Store
}

// New builds a subjects service.
func New(store rowstore.Store) *Service {
	return &Service{store: store}
}

// List returns the known subject names in sheet order.
func (s *Service) List(ctx context.Context) ([]string, error) {
	keys, err := s.store.ListKeys(ctx, deadlines.Sheet)
	if err != nil {
		return nil, fmt.Errorf("subjects: list: %w", err)
	}
	return keys, nil
}

// Describe returns the stored description for a subject. An unknown
// subject or an empty description reports ok=false.
func (s *Service) Describe(ctx context.Context, subject string) (string, bool, error) {
	row, err := s.store.GetRow(ctx, deadlines.Sheet, subject)
	if errors.Is(err, rowstore.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("subjects: describe %s: %w", subject, err)
	}
	desc := strings.TrimSpace(row.Cell(deadlines.DescriptionColumn))
	return desc, desc != "", nil
}

// SetDescription writes the description cell for a subject. Unknown
// subjects are reported as rowstore.ErrNotFound.
func (s *Service) SetDescription(ctx context.Context, subject, description string) error {
	if _, err := s.store.GetRow(ctx, deadlines.Sheet, subject); err != nil {
		return fmt.Errorf("subjects: set description %s: %w", subject, err)
	}
	err := s.store.BatchUpdate(ctx, deadlines.Sheet, deadlines.DescriptionColumn,
		map[string]string{subject: description})
	if err != nil {
		return fmt.Errorf("subjects: set description %s: %w", subject, err)
	}
	logger.SVCSubjects.Info("description saved",
		slog.String("event", "subjects.set"),
		slog.String("subject", subject),
	)
	return nil
}

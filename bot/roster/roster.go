// Package roster manages the student registry sheet. Expected validation
// failures are reported as typed reason codes, not errors; errors are
// reserved for storage faults.
package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/studbot/bot/storage/rowstore"
	"github.com/m3rciful/studbot/bot/validate"
	"github.com/m3rciful/studbot/core/logger"
)

// Sheet is the logical name of the roster sheet.
const Sheet = "roster"

// Roster sheet layout.
const (
	colUsername = iota
	colFullName
	colGroup
	colSubgroup
	colAdmission
)

// AdmissionColumn is the 0-based index of the admission cell in a roster row.
const AdmissionColumn = colAdmission

// Header is the roster sheet header row.
var Header = []string{"username", "ФИО", "Группа", "Подгруппа", "Допуск"}

// Reason classifies the outcome of a registration attempt.
type Reason int

const (
	// ReasonOK means the student record was accepted and stored.
	ReasonOK Reason = iota
	// ReasonMissingName means the full name field is empty.
	ReasonMissingName
	// ReasonMissingGroup means the group field is empty.
	ReasonMissingGroup
	// ReasonMissingSubgroup means the subgroup field is empty.
	ReasonMissingSubgroup
	// ReasonBadName means the full name failed validation.
	ReasonBadName
)

// Student is one roster record.
type Student struct {
	Username  string
	FullName  string
	Group     string
	Subgroup  string
	Admission string
}

func (s Student) row() rowstore.Row {
	return rowstore.Row{s.Username, s.FullName, s.Group, s.Subgroup, s.Admission}
}

func studentFromRow(r rowstore.Row) Student {
	return Student{
		Username:  r.Cell(colUsername),
		FullName:  r.Cell(colFullName),
		Group:     r.Cell(colGroup),
		Subgroup:  r.Cell(colSubgroup),
		Admission: r.Cell(colAdmission),
	}
}

// Service provides roster operations over the row store.
type Service struct {
	store rowstore.Store
}

// New builds a roster service.
func New(store rowstore.Store) *Service {
	return &Service{store: store}
}

// Validate checks a candidate record and returns the first failing reason.
func Validate(s Student) Reason {
	switch {
	case strings.TrimSpace(s.FullName) == "":
		return ReasonMissingName
	case strings.TrimSpace(s.Group) == "":
		return ReasonMissingGroup
	case strings.TrimSpace(s.Subgroup) == "":
		return ReasonMissingSubgroup
	case !validate.FullName(s.FullName):
		return ReasonBadName
	}
	return ReasonOK
}

// Register validates the record and, when it passes, upserts the roster row.
func (s *Service) Register(ctx context.Context, st Student) (Reason, error) {
	if st.Username == "" {
		return ReasonOK, fmt.Errorf("roster: empty username")
	}
	if reason := Validate(st); reason != ReasonOK {
		return reason, nil
	}
	if err := s.store.AddRow(ctx, Sheet, st.row()); err != nil {
		return ReasonOK, fmt.Errorf("roster: register %s: %w", st.Username, err)
	}
	logger.SVCRoster.Info("student registered",
		slog.String("event", "roster.register"),
		slog.String("username", st.Username),
		slog.String("group", st.Group),
	)
	return ReasonOK, nil
}

// Find returns the student record for a username, reporting presence
// separately from storage errors.
func (s *Service) Find(ctx context.Context, username string) (Student, bool, error) {
	row, err := s.store.GetRow(ctx, Sheet, username)
	if errors.Is(err, rowstore.ErrNotFound) {
		return Student{}, false, nil
	}
	if err != nil {
		return Student{}, false, fmt.Errorf("roster: find %s: %w", username, err)
	}
	return studentFromRow(row), true, nil
}

// IsRegistered reports whether the username has a roster row.
func (s *Service) IsRegistered(ctx context.Context, username string) (bool, error) {
	_, ok, err := s.Find(ctx, username)
	return ok, err
}

// SetName replaces the stored full name after validating it.
func (s *Service) SetName(ctx context.Context, username, name string) (Reason, error) {
	if !validate.FullName(name) {
		return ReasonBadName, nil
	}
	st, ok, err := s.Find(ctx, username)
	if err != nil {
		return ReasonOK, err
	}
	if !ok {
		return ReasonOK, fmt.Errorf("%w: student %s", rowstore.ErrNotFound, username)
	}
	st.FullName = name
	if err := s.store.AddRow(ctx, Sheet, st.row()); err != nil {
		return ReasonOK, fmt.Errorf("roster: set name %s: %w", username, err)
	}
	logger.SVCRoster.Info("name changed",
		slog.String("event", "roster.set_name"),
		slog.String("username", username),
	)
	return ReasonOK, nil
}

// Remove deletes the roster row. Unknown usernames are a no-op.
func (s *Service) Remove(ctx context.Context, username string) error {
	if err := s.store.RemoveRow(ctx, Sheet, username); err != nil {
		return fmt.Errorf("roster: remove %s: %w", username, err)
	}
	return nil
}

// List returns all roster records in sheet order.
func (s *Service) List(ctx context.Context) ([]Student, error) {
	rows, err := s.store.ListRows(ctx, Sheet)
	if err != nil {
		return nil, fmt.Errorf("roster: list: %w", err)
	}
	students := make([]Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, studentFromRow(r))
	}
	return students, nil
}

// Usernames returns all registered usernames in sheet order.
func (s *Service) Usernames(ctx context.Context) ([]string, error) {
	keys, err := s.store.ListKeys(ctx, Sheet)
	if err != nil {
		return nil, fmt.Errorf("roster: usernames: %w", err)
	}
	return keys, nil
}

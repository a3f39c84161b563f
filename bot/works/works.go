// Package works tracks lab submissions and computes admission status.
// The works sheet keeps one row per student: the username followed by one
// grade cell per lab.
package works

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/m3rciful/studbot/bot/roster"
	"github.com/m3rciful/studbot/bot/storage/rowstore"
	"github.com/m3rciful/studbot/core/logger"
)

// Sheet is the logical name of the lab-works sheet.
const Sheet = "works"

// Header is the works sheet header row.
var Header = []string{"username", "Лабораторные"}

// Admission cell values written to the roster sheet.
const (
	Admitted    = "Допуск"
	NotAdmitted = "Недопуск"
)

// passingGrade is the minimum grade for a lab to count.
const passingGrade = 4

// Service provides lab-works operations over the row store.
type Service struct {
	store rowstore.Store
}

// New builds a works service.
func New(store rowstore.Store) *Service {
	return &Service{store: store}
}

// ValidLabs counts the grade cells of a works row that parse as an integer
// at or above the passing grade. Cell 0 is the username and is skipped.
func ValidLabs(row rowstore.Row) int {
	count := 0
	for i := 1; i < len(row); i++ {
		grade, err := strconv.Atoi(strings.TrimSpace(row[i]))
		if err != nil {
			continue
		}
		if grade >= passingGrade {
			count++
		}
	}
	return count
}

// ComputeAdmissions resolves admission status for every roster student.
// A student with no works row has zero valid labs.
func ComputeAdmissions(students []roster.Student, works []rowstore.Row, threshold int) map[string]string {
	counts := make(map[string]int, len(works))
	for _, row := range works {
		counts[row.Key()] = ValidLabs(row)
	}
	result := make(map[string]string, len(students))
	for _, st := range students {
		if counts[st.Username] >= threshold {
			result[st.Username] = Admitted
		} else {
			result[st.Username] = NotAdmitted
		}
	}
	return result
}

// Summary is the outcome of an admissions run: admitted students' names
// grouped by class group.
type Summary struct {
	Admitted map[string][]string
	Total    int
}

// Groups returns the group names with at least one admitted student,
// sorted.
func (s Summary) Groups() []string {
	groups := make([]string, 0, len(s.Admitted))
	for g := range s.Admitted {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups
}

// ApplyAdmissions reads the roster and the lab log, computes per-student
// admission against the threshold, and writes the whole result back with a
// single batch update.
func (s *Service) ApplyAdmissions(ctx context.Context, students []roster.Student, threshold int) (Summary, error) {
	workRows, err := s.store.ListRows(ctx, Sheet)
	if err != nil {
		return Summary{}, fmt.Errorf("works: read lab log: %w", err)
	}

	statuses := ComputeAdmissions(students, workRows, threshold)
	if err := s.store.BatchUpdate(ctx, roster.Sheet, roster.AdmissionColumn, statuses); err != nil {
		return Summary{}, fmt.Errorf("works: write admissions: %w", err)
	}

	sum := Summary{Admitted: make(map[string][]string)}
	for _, st := range students {
		if statuses[st.Username] != Admitted {
			continue
		}
		sum.Admitted[st.Group] = append(sum.Admitted[st.Group], st.FullName)
		sum.Total++
	}
	for _, names := range sum.Admitted {
		sort.Strings(names)
	}
	logger.SVCWorks.Info("admissions applied",
		slog.String("event", "works.admissions"),
		slog.Int("threshold", threshold),
		slog.Int("students", len(students)),
		slog.Int("admitted", sum.Total),
	)
	return sum, nil
}

// RecordSubmission appends a grade cell to the student's works row,
// creating the row on first submission.
func (s *Service) RecordSubmission(ctx context.Context, username, grade string) error {
	row, err := s.store.GetRow(ctx, Sheet, username)
	if errors.Is(err, rowstore.ErrNotFound) {
		row = rowstore.Row{username}
	} else if err != nil {
		return fmt.Errorf("works: read row %s: %w", username, err)
	}
	row = append(row.Clone(), grade)
	if err := s.store.AddRow(ctx, Sheet, row); err != nil {
		return fmt.Errorf("works: record submission %s: %w", username, err)
	}
	logger.SVCWorks.Info("submission recorded",
		slog.String("event", "works.submission"),
		slog.String("username", username),
	)
	return nil
}

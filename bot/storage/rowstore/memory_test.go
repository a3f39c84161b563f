package rowstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryAddGetRemove(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryWithSheets("roster")

	require.NoError(t, m.AddRow(ctx, "roster", Row{"ivanov", "Иванов Иван Иванович", "ИУ7-34Б", "1"}))

	row, err := m.GetRow(ctx, "roster", "ivanov")
	require.NoError(t, err)
	require.Equal(t, "Иванов Иван Иванович", row.Cell(1))

	// AddRow with the same key replaces the row.
	require.NoError(t, m.AddRow(ctx, "roster", Row{"ivanov", "Иванов Иван", "ИУ7-34Б", "2"}))
	row, err = m.GetRow(ctx, "roster", "ivanov")
	require.NoError(t, err)
	require.Equal(t, "2", row.Cell(3))

	keys, err := m.ListKeys(ctx, "roster")
	require.NoError(t, err)
	require.Equal(t, []string{"ivanov"}, keys)

	require.NoError(t, m.RemoveRow(ctx, "roster", "ivanov"))
	_, err = m.GetRow(ctx, "roster", "ivanov")
	require.ErrorIs(t, err, ErrNotFound)

	// Removing again is a no-op.
	require.NoError(t, m.RemoveRow(ctx, "roster", "ivanov"))
}

func TestMemoryUnknownSheet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.ListRows(ctx, "works")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryBatchUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryWithSheets("works")
	require.NoError(t, m.AddRow(ctx, "works", Row{"ivanov", "5", "4"}))
	require.NoError(t, m.AddRow(ctx, "works", Row{"petrov", "3"}))

	err := m.BatchUpdate(ctx, "works", 4, map[string]string{
		"ivanov":  "Допуск",
		"petrov":  "Недопуск",
		"unknown": "Допуск", // absent keys are skipped
	})
	require.NoError(t, err)

	row, err := m.GetRow(ctx, "works", "ivanov")
	require.NoError(t, err)
	require.Equal(t, "Допуск", row.Cell(4))

	// Short rows are padded up to the target column.
	row, err = m.GetRow(ctx, "works", "petrov")
	require.NoError(t, err)
	require.Equal(t, "Недопуск", row.Cell(4))
	require.Equal(t, "", row.Cell(2))
}

func TestMemoryCreateSheet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.CreateSheet(ctx, "roster", []string{"username", "ФИО", "Группа"}))
	require.ErrorIs(t, m.CreateSheet(ctx, "roster", nil), ErrSheetExists)

	header, ok := m.Header("roster")
	require.True(t, ok)
	require.Equal(t, []string{"username", "ФИО", "Группа"}, header)
}

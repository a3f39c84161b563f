package works

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/studbot/bot/roster"
	"github.com/m3rciful/studbot/bot/storage/rowstore"
)

func TestValidLabs(t *testing.T) {
	require.Equal(t, 1, ValidLabs(rowstore.Row{"u1", "5", "3"}))
	require.Equal(t, 1, ValidLabs(rowstore.Row{"u2", "4"}))
	require.Equal(t, 0, ValidLabs(rowstore.Row{"u3", "abc", "", "3"}))
	require.Equal(t, 0, ValidLabs(rowstore.Row{"u4"}))
}

func TestComputeAdmissions(t *testing.T) {
	students := []roster.Student{
		{Username: "u1", FullName: "Иванов Иван Иванович", Group: "ИУ7-34Б"},
		{Username: "u2", FullName: "Петров Пётр Петрович", Group: "ИУ7-35Б"},
	}
	labs := []rowstore.Row{
		{"u1", "5", "3"},
		{"u2", "4"},
	}

	got := ComputeAdmissions(students, labs, 1)
	require.Equal(t, map[string]string{"u1": Admitted, "u2": Admitted}, got)

	got = ComputeAdmissions(students, labs, 2)
	require.Equal(t, map[string]string{"u1": NotAdmitted, "u2": NotAdmitted}, got)
}

func TestComputeAdmissionsWithoutWorksRow(t *testing.T) {
	students := []roster.Student{{Username: "u1"}}
	got := ComputeAdmissions(students, nil, 1)
	require.Equal(t, map[string]string{"u1": NotAdmitted}, got)
}

func TestApplyAdmissionsWritesRosterColumn(t *testing.T) {
	store := rowstore.NewMemoryWithSheets(roster.Sheet, Sheet)
	ctx := context.Background()

	require.NoError(t, store.AddRow(ctx, roster.Sheet,
		rowstore.Row{"u1", "Иванов Иван Иванович", "ИУ7-34Б", "1", ""}))
	require.NoError(t, store.AddRow(ctx, roster.Sheet,
		rowstore.Row{"u2", "Петров Пётр Петрович", "ИУ7-34Б", "2", ""}))
	require.NoError(t, store.AddRow(ctx, Sheet, rowstore.Row{"u1", "5", "4"}))
	require.NoError(t, store.AddRow(ctx, Sheet, rowstore.Row{"u2", "3"}))

	svc := New(store)
	students := []roster.Student{
		{Username: "u1", FullName: "Иванов Иван Иванович", Group: "ИУ7-34Б"},
		{Username: "u2", FullName: "Петров Пётр Петрович", Group: "ИУ7-34Б"},
	}

	sum, err := svc.ApplyAdmissions(ctx, students, 2)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Total)
	require.Equal(t, []string{"ИУ7-34Б"}, sum.Groups())
	require.Equal(t, []string{"Иванов Иван Иванович"}, sum.Admitted["ИУ7-34Б"])

	r1, err := store.GetRow(ctx, roster.Sheet, "u1")
	require.NoError(t, err)
	require.Equal(t, Admitted, r1.Cell(roster.AdmissionColumn))

	r2, err := store.GetRow(ctx, roster.Sheet, "u2")
	require.NoError(t, err)
	require.Equal(t, NotAdmitted, r2.Cell(roster.AdmissionColumn))
}

func TestApplyAdmissionsEmptyResult(t *testing.T) {
	store := rowstore.NewMemoryWithSheets(roster.Sheet, Sheet)
	svc := New(store)

	sum, err := svc.ApplyAdmissions(context.Background(),
		[]roster.Student{{Username: "u1", Group: "g"}}, 1)
	require.NoError(t, err)
	require.Zero(t, sum.Total)
	require.Empty(t, sum.Admitted)
}

func TestRecordSubmission(t *testing.T) {
	store := rowstore.NewMemoryWithSheets(Sheet)
	svc := New(store)
	ctx := context.Background()

	require.NoError(t, svc.RecordSubmission(ctx, "u1", "5"))
	require.NoError(t, svc.RecordSubmission(ctx, "u1", "4"))

	row, err := store.GetRow(ctx, Sheet, "u1")
	require.NoError(t, err)
	require.Equal(t, rowstore.Row{"u1", "5", "4"}, row)
}

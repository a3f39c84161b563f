package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/studbot/bot/deadlines"
	"github.com/m3rciful/studbot/bot/storage/rowstore"
)

func seedDisciplines(t *testing.T, e *env) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.AddRow(ctx, deadlines.Sheet, rowstore.Row{"ОС", "24.12", ""}))
	require.NoError(t, e.store.AddRow(ctx, deadlines.Sheet, rowstore.Row{"Сети", "", ""}))
}

func TestDeadlineLookup(t *testing.T) {
	e := newEnv(t)
	seedDisciplines(t, e)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/deadline"))
	require.NoError(t, e.press(c, cbDeadlinePick, "ОС"))

	require.False(t, e.disp.InProgress(e.key(c)))
	require.Contains(t, c.lastSent(), "24.12")
}

func TestDeadlineLookupUnassigned(t *testing.T) {
	e := newEnv(t)
	seedDisciplines(t, e)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/deadline"))
	require.NoError(t, e.press(c, cbDeadlinePick, "Сети"))
	require.Contains(t, c.lastSent(), "не назначен")
}

func TestDeadlineSetFlow(t *testing.T) {
	e := newEnv(t)
	seedDisciplines(t, e)
	c := newFakeCtx(1, teacherUser())

	require.NoError(t, e.command(c, "/deadline_set"))
	require.NoError(t, e.press(c, cbDeadlineSet, "Сети"))
	require.NoError(t, e.typeText(c, "15.05"))

	require.False(t, e.disp.InProgress(e.key(c)))
	entry, ok, err := e.deps.Deadlines.Find(context.Background(), "Сети")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "15.05", entry.Date)
}

func TestSubjectSurvey(t *testing.T) {
	e := newEnv(t)
	seedDisciplines(t, e)
	c := newFakeCtx(1, studentUser())

	// No description yet.
	require.NoError(t, e.command(c, "/subject_description"))
	require.NoError(t, e.press(c, cbSubjectShow, "ОС"))
	require.Contains(t, c.lastSent(), "описания пока нет")

	// Collect one.
	require.NoError(t, e.command(c, "/subject_description_add"))
	require.NoError(t, e.press(c, cbSubjectAdd, "ОС"))
	require.NoError(t, e.typeText(c, "Курс про операционные системы."))
	require.False(t, e.disp.InProgress(e.key(c)))

	// Now it shows up.
	require.NoError(t, e.command(c, "/subject_description"))
	require.NoError(t, e.press(c, cbSubjectShow, "ОС"))
	require.Contains(t, c.lastSent(), "операционные системы")
}

func TestDeadlineWithEmptyList(t *testing.T) {
	e := newEnv(t)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/deadline"))
	require.False(t, e.disp.InProgress(e.key(c)))
	require.Contains(t, c.lastSent(), "пуст")
}

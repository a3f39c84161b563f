package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/studbot/bot/roster"
	"github.com/m3rciful/studbot/bot/storage/rowstore"
	"github.com/m3rciful/studbot/bot/works"
)

func registerStudent(t *testing.T, e *env) {
	t.Helper()
	_, err := e.deps.Roster.Register(context.Background(), roster.Student{
		Username: "ivanov", FullName: "Иванов Иван Иванович", Group: "ИУ7-34Б", Subgroup: "1",
	})
	require.NoError(t, err)
}

func TestLabsAcceptsReport(t *testing.T) {
	e := newEnv(t)
	registerStudent(t, e)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/labs"))
	conv, ok := e.disp.Store().Get(e.key(c))
	require.True(t, ok)
	require.Equal(t, stateAwaitFile, conv.State)

	require.NoError(t, e.upload(c, "lab1.pdf"))
	require.False(t, e.disp.InProgress(e.key(c)))

	row, err := e.store.GetRow(context.Background(), works.Sheet, "ivanov")
	require.NoError(t, err)
	require.Equal(t, rowstore.Row{"ivanov", ungradedMark}, row)
}

func TestLabsRejectsWrongExtension(t *testing.T) {
	e := newEnv(t)
	registerStudent(t, e)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/labs"))
	require.NoError(t, e.upload(c, "lab1.exe"))

	conv, ok := e.disp.Store().Get(e.key(c))
	require.True(t, ok, "wrong format re-prompts the same step")
	require.Equal(t, stateAwaitFile, conv.State)
	require.Contains(t, c.lastSent(), "формат")

	_, err := e.store.GetRow(context.Background(), works.Sheet, "ivanov")
	require.ErrorIs(t, err, rowstore.ErrNotFound)
}

func TestLabsRequireRegistration(t *testing.T) {
	e := newEnv(t)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/labs"))
	require.False(t, e.disp.InProgress(e.key(c)))
	require.Contains(t, c.lastSent(), "/reg")
}

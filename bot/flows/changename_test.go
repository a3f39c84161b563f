package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChangeNameFlow(t *testing.T) {
	e := newEnv(t)
	registerStudent(t, e)
	c := newFakeCtx(1, teacherUser())

	require.NoError(t, e.command(c, "/change_name"))
	require.NoError(t, e.press(c, cbPickStudent, "ivanov"))
	require.NoError(t, e.typeText(c, "Петров Пётр Петрович"))

	require.False(t, e.disp.InProgress(e.key(c)))
	st, ok, err := e.deps.Roster.Find(context.Background(), "ivanov")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Петров Пётр Петрович", st.FullName)
}

func TestChangeNameRejectsBadName(t *testing.T) {
	e := newEnv(t)
	registerStudent(t, e)
	c := newFakeCtx(1, teacherUser())

	require.NoError(t, e.command(c, "/change_name"))
	require.NoError(t, e.press(c, cbPickStudent, "ivanov"))
	require.NoError(t, e.typeText(c, "Иванов123 Иван"))

	conv, ok := e.disp.Store().Get(e.key(c))
	require.True(t, ok, "bad name re-prompts the same step")
	require.Equal(t, stateTypeName, conv.State)
	st, _, err := e.deps.Roster.Find(context.Background(), "ivanov")
	require.NoError(t, err)
	require.Equal(t, "Иванов Иван Иванович", st.FullName)
}

func TestRemoveStudentFlow(t *testing.T) {
	e := newEnv(t)
	registerStudent(t, e)
	c := newFakeCtx(1, teacherUser())

	require.NoError(t, e.command(c, "/remove_student"))
	require.NoError(t, e.press(c, cbRemoveStudent, "ivanov"))

	require.False(t, e.disp.InProgress(e.key(c)))
	_, ok, err := e.deps.Roster.Find(context.Background(), "ivanov")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoveStudentWithEmptyRoster(t *testing.T) {
	e := newEnv(t)
	c := newFakeCtx(1, teacherUser())

	require.NoError(t, e.command(c, "/remove_student"))
	require.False(t, e.disp.InProgress(e.key(c)))
	require.Contains(t, c.lastSent(), "нет ни одного")
}

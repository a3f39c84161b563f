package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/bot/roster"
	"github.com/m3rciful/studbot/bot/storage/rowstore"
)

func fillAttribute(t *testing.T, e *env, c *fakeCtx, attr, value string) {
	t.Helper()
	require.NoError(t, e.press(c, cbRegAttr, attr))
	require.NoError(t, e.typeText(c, value))
}

func TestRegistrationHappyPath(t *testing.T) {
	e := newEnv(t)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/reg"))
	require.NoError(t, e.press(c, cbRegAdd, ""))

	conv, ok := e.disp.Store().Get(e.key(c))
	require.True(t, ok)
	require.Equal(t, "describe", conv.Flow)
	require.Equal(t, stateSelectAttribute, conv.State)

	fillAttribute(t, e, c, attrName, "Иванов Иван Иванович")
	fillAttribute(t, e, c, attrGroup, "ИУ7-34Б")
	fillAttribute(t, e, c, attrSubgroup, "1")
	require.NoError(t, e.press(c, cbRegConfirm, ""))

	require.False(t, e.disp.InProgress(e.key(c)), "registration ends the conversation")

	rows, err := e.store.ListRows(context.Background(), roster.Sheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, rowstore.Row{"ivanov", "Иванов Иван Иванович", "ИУ7-34Б", "1", ""}, rows[0])
}

func TestRegistrationMissingFieldLoopsBack(t *testing.T) {
	e := newEnv(t)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/reg"))
	require.NoError(t, e.press(c, cbRegAdd, ""))
	fillAttribute(t, e, c, attrName, "Иванов Иван Иванович")
	fillAttribute(t, e, c, attrGroup, "ИУ7-34Б")
	require.NoError(t, e.press(c, cbRegConfirm, ""))

	conv, ok := e.disp.Store().Get(e.key(c))
	require.True(t, ok, "invalid bag keeps the conversation alive for a retry")
	require.Equal(t, "describe", conv.Flow)
	require.Equal(t, stateSelectAttribute, conv.State)

	keys, err := e.store.ListKeys(context.Background(), roster.Sheet)
	require.NoError(t, err)
	require.Empty(t, keys, "no row may be written for a partial registration")
}

func TestRegistrationBadNameRejected(t *testing.T) {
	e := newEnv(t)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/reg"))
	require.NoError(t, e.press(c, cbRegAdd, ""))
	fillAttribute(t, e, c, attrName, "Иванов123 Иван")
	fillAttribute(t, e, c, attrGroup, "ИУ7-34Б")
	fillAttribute(t, e, c, attrSubgroup, "1")
	require.NoError(t, e.press(c, cbRegConfirm, ""))

	require.True(t, e.disp.InProgress(e.key(c)))
	keys, err := e.store.ListKeys(context.Background(), roster.Sheet)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestRegistrationShowWithoutRecord(t *testing.T) {
	e := newEnv(t)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/reg"))
	require.NoError(t, e.press(c, cbRegShow, ""))

	require.Contains(t, c.lastSent(), "не зарегистрированы")
	require.True(t, e.disp.InProgress(e.key(c)), "show keeps the menu open")
}

func TestRegistrationBackReturnsToMenu(t *testing.T) {
	e := newEnv(t)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/reg"))
	require.NoError(t, e.press(c, cbRegAdd, ""))
	require.NoError(t, e.press(c, cbRegBack, ""))

	conv, ok := e.disp.Store().Get(e.key(c))
	require.True(t, ok)
	require.Equal(t, "registration", conv.Flow)
	require.Equal(t, stateSelectAction, conv.State)
}

func TestCancelCommandAbortsRegistration(t *testing.T) {
	e := newEnv(t)
	c := newFakeCtx(1, studentUser())

	require.NoError(t, e.command(c, "/reg"))
	require.NoError(t, e.press(c, cbRegAdd, ""))
	require.NoError(t, e.command(c, "/cancel"))

	require.False(t, e.disp.InProgress(e.key(c)))
	keys, err := e.store.ListKeys(context.Background(), roster.Sheet)
	require.NoError(t, err)
	require.Empty(t, keys)
}

func TestRegistrationRequiresUsername(t *testing.T) {
	e := newEnv(t)
	c := newFakeCtx(1, &tele.User{ID: 7})

	require.NoError(t, e.command(c, "/reg"))
	require.False(t, e.disp.InProgress(e.key(c)))
	require.Contains(t, c.lastSent(), "username")
}

package flows

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/bot/roster"
	"github.com/m3rciful/studbot/core/telegram/flow"
)

type fakeChatAPI struct {
	sent   []string
	banned bool
}

func (f *fakeChatAPI) Send(_ tele.Recipient, what any, _ ...any) (*tele.Message, error) {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	return &tele.Message{}, nil
}

func (f *fakeChatAPI) Ban(*tele.Chat, *tele.ChatMember, ...bool) error {
	f.banned = true
	return nil
}

func memberUpdate(c *fakeCtx, user *tele.User, oldRole, newRole tele.MemberStatus) {
	c.member = &tele.ChatMemberUpdate{
		Chat:          c.chat,
		OldChatMember: &tele.ChatMember{Role: oldRole, User: user},
		NewChatMember: &tele.ChatMember{Role: newRole, User: user},
	}
}

func TestIsChatMember(t *testing.T) {
	require.True(t, IsChatMember(&tele.ChatMember{Role: tele.Member}))
	require.True(t, IsChatMember(&tele.ChatMember{Role: tele.Creator}))
	require.True(t, IsChatMember(&tele.ChatMember{Role: tele.Administrator}))
	require.True(t, IsChatMember(&tele.ChatMember{Role: tele.Restricted, Member: true}))
	require.False(t, IsChatMember(&tele.ChatMember{Role: tele.Restricted}))
	require.False(t, IsChatMember(&tele.ChatMember{Role: tele.Left}))
	require.False(t, IsChatMember(&tele.ChatMember{Role: tele.Kicked}))
	require.False(t, IsChatMember(nil))
}

func TestJoinSchedulesKickForUnregistered(t *testing.T) {
	e := newEnv(t)
	user := studentUser()
	c := newFakeCtx(42, user)
	memberUpdate(c, user, tele.Left, tele.Member)

	require.NoError(t, e.disp.Dispatch(c, flow.MemberEvent()))

	require.NotNil(t, e.sched.fn, "a grace timer must be armed")
	require.Equal(t, "kick/42/100", e.sched.name)
	require.Equal(t, e.deps.KickAfter, e.sched.delay)
	require.Contains(t, c.sent[0], "Добро пожаловать")
}

func TestJoinOfRegisteredSkipsTimer(t *testing.T) {
	e := newEnv(t)
	user := studentUser()
	_, err := e.deps.Roster.Register(context.Background(), roster.Student{
		Username: user.Username, FullName: "Иванов Иван Иванович", Group: "ИУ7-34Б", Subgroup: "1",
	})
	require.NoError(t, err)

	c := newFakeCtx(42, user)
	memberUpdate(c, user, tele.Left, tele.Member)
	require.NoError(t, e.disp.Dispatch(c, flow.MemberEvent()))

	require.Nil(t, e.sched.fn, "registered members need no grace timer")
}

func TestLeaveSendsGoodbye(t *testing.T) {
	e := newEnv(t)
	user := studentUser()
	c := newFakeCtx(42, user)
	memberUpdate(c, user, tele.Member, tele.Left)

	require.NoError(t, e.disp.Dispatch(c, flow.MemberEvent()))
	require.Contains(t, c.lastSent(), "покидает чат")
	require.Nil(t, e.sched.fn)
}

func TestKickCheckCongratulatesRegistered(t *testing.T) {
	e := newEnv(t)
	user := studentUser()
	api := &fakeChatAPI{}
	check := kickCheck(e.deps, api, &tele.Chat{ID: 42}, user)

	// The user registers before the timer fires.
	_, err := e.deps.Roster.Register(context.Background(), roster.Student{
		Username: user.Username, FullName: "Иванов Иван Иванович", Group: "ИУ7-34Б", Subgroup: "1",
	})
	require.NoError(t, err)

	check()
	require.False(t, api.banned)
	require.Len(t, api.sent, 1)
	require.Contains(t, api.sent[0], "спасибо за регистрацию")
}

func TestKickCheckBansUnregistered(t *testing.T) {
	e := newEnv(t)
	user := studentUser()
	api := &fakeChatAPI{}

	kickCheck(e.deps, api, &tele.Chat{ID: 42}, user)()
	require.True(t, api.banned)
	require.Contains(t, api.sent[0], "не зарегистрировались")
}

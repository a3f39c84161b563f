package flows

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/bot/deadlines"
	"github.com/m3rciful/studbot/bot/roster"
	"github.com/m3rciful/studbot/bot/storage/rowstore"
	"github.com/m3rciful/studbot/bot/subjects"
	"github.com/m3rciful/studbot/bot/works"
	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/state"
)

type fakeCtx struct {
	tele.Context
	chat     *tele.Chat
	sender   *tele.User
	text     string
	callback *tele.Callback
	member   *tele.ChatMemberUpdate
	doc      *tele.Document
	sent     []string
	vals     map[string]any
}

func newFakeCtx(chatID int64, user *tele.User) *fakeCtx {
	return &fakeCtx{
		chat:   &tele.Chat{ID: chatID},
		sender: user,
		vals:   make(map[string]any),
	}
}

func (f *fakeCtx) Chat() *tele.Chat                  { return f.chat }
func (f *fakeCtx) Sender() *tele.User                { return f.sender }
func (f *fakeCtx) Text() string                      { return f.text }
func (f *fakeCtx) Update() tele.Update               { return tele.Update{ID: 1} }
func (f *fakeCtx) Callback() *tele.Callback          { return f.callback }
func (f *fakeCtx) ChatMember() *tele.ChatMemberUpdate { return f.member }
func (f *fakeCtx) Bot() tele.API                     { return nil }
func (f *fakeCtx) Get(key string) any                { return f.vals[key] }
func (f *fakeCtx) Set(key string, value any)         { f.vals[key] = value }
func (f *fakeCtx) Respond(...*tele.CallbackResponse) error { return nil }

func (f *fakeCtx) Message() *tele.Message {
	if f.doc == nil {
		return nil
	}
	return &tele.Message{Document: f.doc}
}

func (f *fakeCtx) Send(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	return nil
}

func (f *fakeCtx) EditOrSend(what any, opts ...any) error {
	return f.Send(what, opts...)
}

func (f *fakeCtx) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type fakeDelayer struct {
	name  string
	delay time.Duration
	fn    func()
}

func (f *fakeDelayer) Once(name string, delay time.Duration, fn func()) error {
	f.name, f.delay, f.fn = name, delay, fn
	return nil
}
func (f *fakeDelayer) Cancel(string) {}
func (f *fakeDelayer) Stop()         {}

type env struct {
	store *rowstore.Memory
	deps  Deps
	disp  *flow.Dispatcher
	sched *fakeDelayer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := rowstore.NewMemoryWithSheets(roster.Sheet, works.Sheet, deadlines.Sheet)
	sched := &fakeDelayer{}
	deps := Deps{
		Roster:    roster.New(store),
		Works:     works.New(store),
		Deadlines: deadlines.New(store),
		Subjects:  subjects.New(store),
		Creator:   store,
		Sched:     sched,
		KickAfter: 10 * time.Minute,
	}
	reg := flow.NewRegistry()
	require.NoError(t, Register(reg, deps))
	return &env{
		store: store,
		deps:  deps,
		disp:  flow.NewDispatcher(reg, state.NewStore()),
		sched: sched,
	}
}

func (e *env) command(c *fakeCtx, cmd string) error {
	c.callback = nil
	c.text = cmd
	return e.disp.Dispatch(c, flow.Event{Kind: flow.TriggerCommand, Value: cmd, Text: cmd})
}

func (e *env) press(c *fakeCtx, key, payload string) error {
	c.callback = &tele.Callback{Unique: key, Data: payload}
	return e.disp.Dispatch(c, flow.Event{Kind: flow.TriggerCallback, Value: key, Payload: payload})
}

func (e *env) typeText(c *fakeCtx, text string) error {
	c.callback = nil
	c.text = text
	return e.disp.Dispatch(c, flow.Event{Kind: flow.TriggerText, Text: text})
}

func (e *env) upload(c *fakeCtx, filename string) error {
	c.callback = nil
	c.doc = &tele.Document{FileName: filename}
	defer func() { c.doc = nil }()
	return e.disp.Dispatch(c, flow.DocumentEvent(c))
}

func (e *env) key(c *fakeCtx) state.Key {
	return state.Key{ChatID: c.chat.ID, UserID: c.sender.ID}
}

func studentUser() *tele.User {
	return &tele.User{ID: 100, Username: "ivanov", FirstName: "Иван"}
}

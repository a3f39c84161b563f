package router

import (
	"testing"

	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/state"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	chat   *tele.Chat
	sender *tele.User
	text   string
	msg    *tele.Message
	vals   map[string]any
}

func newFakeContext(chatID, userID int64) *fakeContext {
	return &fakeContext{
		chat:   &tele.Chat{ID: chatID},
		sender: &tele.User{ID: userID},
		vals:   make(map[string]any),
	}
}

func (f *fakeContext) Chat() *tele.Chat                        { return f.chat }
func (f *fakeContext) Sender() *tele.User                      { return f.sender }
func (f *fakeContext) Text() string                            { return f.text }
func (f *fakeContext) Message() *tele.Message                  { return f.msg }
func (f *fakeContext) Update() tele.Update                     { return tele.Update{ID: 1} }
func (f *fakeContext) Get(key string) any                      { return f.vals[key] }
func (f *fakeContext) Set(key string, value any)               { f.vals[key] = value }
func (f *fakeContext) Send(any, ...any) error                  { return nil }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error { return nil }

// pickRegistry registers a flow whose only mid-conversation rule is a
// callback, so free text inside it matches nothing.
func pickRegistry(t *testing.T) *flow.Registry {
	t.Helper()
	reg := flow.NewRegistry()
	f := &flow.Flow{
		Name: "deadline",
		Entry: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/deadline"},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				return flow.Move("pick_subject"), nil
			},
		}},
		Rules: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: "deadline_pick"},
			States:  []state.ID{"pick_subject"},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				return flow.End(flow.ResultCompleted), nil
			},
		}},
	}
	require.NoError(t, reg.Add(f))
	return reg
}

func TestTextFallbackWithoutConversation(t *testing.T) {
	reg := pickRegistry(t)
	d := flow.NewDispatcher(reg, state.NewStore())

	fallbacks := 0
	h := textHandler(reg, d, Options{UnknownText: func(c tele.Context) error {
		fallbacks++
		return nil
	}})

	c := newFakeContext(1, 2)
	c.text = "привет"
	require.NoError(t, h(c))
	require.Equal(t, 1, fallbacks)
}

func TestTextDuringConversationIsSilent(t *testing.T) {
	reg := pickRegistry(t)
	d := flow.NewDispatcher(reg, state.NewStore())

	c := newFakeContext(1, 2)
	c.text = "/deadline"
	require.NoError(t, d.Dispatch(c, flow.CommandEvent(c, "/deadline")))
	require.True(t, d.InProgress(state.Key{ChatID: 1, UserID: 2}))

	fallbacks := 0
	h := textHandler(reg, d, Options{UnknownText: func(c tele.Context) error {
		fallbacks++
		return nil
	}})

	// Unmatched text mid-conversation must not trigger the fallback or
	// disturb the conversation.
	c.text = "привет"
	require.NoError(t, h(c))
	require.Zero(t, fallbacks)

	conv, ok := d.Store().Get(state.Key{ChatID: 1, UserID: 2})
	require.True(t, ok)
	require.Equal(t, state.ID("pick_subject"), conv.State)
}

func TestDocumentDuringConversationIsSilent(t *testing.T) {
	reg := pickRegistry(t)
	d := flow.NewDispatcher(reg, state.NewStore())

	c := newFakeContext(3, 4)
	c.text = "/deadline"
	require.NoError(t, d.Dispatch(c, flow.CommandEvent(c, "/deadline")))

	fallbacks := 0
	h := documentHandler(d, Options{UnknownDocument: func(c tele.Context) error {
		fallbacks++
		return nil
	}})

	c.text = ""
	c.msg = &tele.Message{Document: &tele.Document{FileName: "report.pdf"}}
	require.NoError(t, h(c))
	require.Zero(t, fallbacks)
}

func TestDocumentFallbackWithoutConversation(t *testing.T) {
	reg := pickRegistry(t)
	d := flow.NewDispatcher(reg, state.NewStore())

	fallbacks := 0
	h := documentHandler(d, Options{UnknownDocument: func(c tele.Context) error {
		fallbacks++
		return nil
	}})

	c := newFakeContext(5, 6)
	c.msg = &tele.Message{Document: &tele.Document{FileName: "report.pdf"}}
	require.NoError(t, h(c))
	require.Equal(t, 1, fallbacks)
}

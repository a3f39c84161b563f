package flow

import (
	"errors"
	"testing"

	"github.com/m3rciful/studbot/core/telegram/state"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	chat   *tele.Chat
	sender *tele.User
	text   string
	vals   map[string]any
}

func newFakeContext(chatID, userID int64) *fakeContext {
	return &fakeContext{
		chat:   &tele.Chat{ID: chatID},
		sender: &tele.User{ID: userID},
		vals:   make(map[string]any),
	}
}

func (f *fakeContext) Chat() *tele.Chat            { return f.chat }
func (f *fakeContext) Sender() *tele.User          { return f.sender }
func (f *fakeContext) Text() string                { return f.text }
func (f *fakeContext) Update() tele.Update         { return tele.Update{ID: 1} }
func (f *fakeContext) Get(key string) any          { return f.vals[key] }
func (f *fakeContext) Set(key string, value any)   { f.vals[key] = value }
func (f *fakeContext) Send(any, ...any) error      { return nil }
func (f *fakeContext) Respond(...*tele.CallbackResponse) error { return nil }

func stayHandler(c tele.Context, conv *state.Conversation) (Outcome, error) {
	return Stay(), nil
}

func moveTo(next state.ID) HandlerFunc {
	return func(c tele.Context, conv *state.Conversation) (Outcome, error) {
		return Move(next), nil
	}
}

func TestRegistryRejectsDuplicateClaim(t *testing.T) {
	reg := NewRegistry()
	f := &Flow{
		Name: "survey",
		Rules: []Rule{
			{Trigger: Trigger{Kind: TriggerText}, States: []state.ID{"ask"}, Handle: stayHandler},
			{Trigger: Trigger{Kind: TriggerText}, States: []state.ID{"ask"}, Handle: stayHandler},
		},
	}
	require.Error(t, reg.Add(f))
}

func TestRegistryRejectsDuplicateEntryTrigger(t *testing.T) {
	reg := NewRegistry()
	a := &Flow{Name: "a", Entry: []Rule{{Trigger: Trigger{Kind: TriggerCommand, Value: "/go"}, Handle: moveTo("x")}}}
	b := &Flow{Name: "b", Entry: []Rule{{Trigger: Trigger{Kind: TriggerCommand, Value: "/go"}, Handle: moveTo("y")}}}
	require.NoError(t, reg.Add(a))
	require.Error(t, reg.Add(b))
}

func TestEntryBeginsConversation(t *testing.T) {
	reg := NewRegistry()
	f := &Flow{
		Name: "deadline",
		Entry: []Rule{{
			Trigger: Trigger{Kind: TriggerCommand, Value: "/deadline"},
			Handle: func(c tele.Context, conv *state.Conversation) (Outcome, error) {
				conv.Set("asked_at", int64(42))
				return Move("pick_subject"), nil
			},
		}},
	}
	require.NoError(t, reg.Add(f))
	d := NewDispatcher(reg, state.NewStore())

	c := newFakeContext(10, 20)
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCommand, Value: "/deadline"}))

	conv, ok := d.Store().Get(state.Key{ChatID: 10, UserID: 20})
	require.True(t, ok)
	require.Equal(t, "deadline", conv.Flow)
	require.Equal(t, state.ID("pick_subject"), conv.State)
	n, _ := conv.GetInt64("asked_at")
	require.Equal(t, int64(42), n)
}

func TestEntryStayIsOneShot(t *testing.T) {
	reg := NewRegistry()
	f := &Flow{
		Name:  "start",
		Entry: []Rule{{Trigger: Trigger{Kind: TriggerCommand, Value: "/start"}, Handle: stayHandler}},
	}
	require.NoError(t, reg.Add(f))
	d := NewDispatcher(reg, state.NewStore())

	c := newFakeContext(1, 2)
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCommand, Value: "/start"}))
	require.False(t, d.InProgress(state.Key{ChatID: 1, UserID: 2}))
}

func TestExactStateBeatsAnyState(t *testing.T) {
	var hit string
	reg := NewRegistry()
	f := &Flow{
		Name:  "labs",
		Entry: []Rule{{Trigger: Trigger{Kind: TriggerCommand, Value: "/labs"}, Handle: moveTo("await_file")}},
		Rules: []Rule{
			{
				Trigger: Trigger{Kind: TriggerText},
				Handle: func(c tele.Context, conv *state.Conversation) (Outcome, error) {
					hit = "wildcard"
					return Stay(), nil
				},
			},
			{
				Trigger: Trigger{Kind: TriggerText},
				States:  []state.ID{"await_file"},
				Handle: func(c tele.Context, conv *state.Conversation) (Outcome, error) {
					hit = "exact"
					return Stay(), nil
				},
			},
		},
	}
	require.NoError(t, reg.Add(f))
	d := NewDispatcher(reg, state.NewStore())

	c := newFakeContext(1, 2)
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCommand, Value: "/labs"}))
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerText, Text: "hi"}))
	// The exact-state rule wins even though the wildcard was registered first.
	require.Equal(t, "exact", hit)
}

func TestUnmatchedEventIsNoOp(t *testing.T) {
	reg := NewRegistry()
	f := &Flow{
		Name:  "reg",
		Entry: []Rule{{Trigger: Trigger{Kind: TriggerCommand, Value: "/reg"}, Handle: moveTo("select_action")}},
		Rules: []Rule{{Trigger: Trigger{Kind: TriggerCallback, Value: "reg_add"}, States: []state.ID{"select_action"}, Handle: moveTo("done")}},
	}
	require.NoError(t, reg.Add(f))
	d := NewDispatcher(reg, state.NewStore())

	c := newFakeContext(3, 4)
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCommand, Value: "/reg"}))

	before, _ := d.Store().Get(state.Key{ChatID: 3, UserID: 4})
	prevState := before.State

	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerDocument, Value: ".pdf"}))

	after, ok := d.Store().Get(state.Key{ChatID: 3, UserID: 4})
	require.True(t, ok)
	require.Equal(t, prevState, after.State)
	require.Equal(t, "reg", after.Flow)
}

func TestHandlerErrorLeavesStateUnchanged(t *testing.T) {
	reg := NewRegistry()
	f := &Flow{
		Name:  "reg",
		Entry: []Rule{{Trigger: Trigger{Kind: TriggerCommand, Value: "/reg"}, Handle: moveTo("type_name")}},
		Rules: []Rule{{
			Trigger: Trigger{Kind: TriggerText},
			States:  []state.ID{"type_name"},
			Handle: func(c tele.Context, conv *state.Conversation) (Outcome, error) {
				return Move("done"), errors.New("storage unavailable")
			},
		}},
	}
	require.NoError(t, reg.Add(f))
	d := NewDispatcher(reg, state.NewStore())

	c := newFakeContext(5, 6)
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCommand, Value: "/reg"}))
	err := d.Dispatch(c, Event{Kind: TriggerText, Text: "Иванов Иван Иванович"})
	require.Error(t, err)

	conv, _ := d.Store().Get(state.Key{ChatID: 5, UserID: 6})
	require.Equal(t, state.ID("type_name"), conv.State)
}

func TestHandlerErrorRollsBackScratchData(t *testing.T) {
	reg := NewRegistry()
	f := &Flow{
		Name: "reg",
		Entry: []Rule{{
			Trigger: Trigger{Kind: TriggerCommand, Value: "/reg"},
			Handle: func(c tele.Context, conv *state.Conversation) (Outcome, error) {
				conv.Set("full_name", "Иванов Иван Иванович")
				return Move("type_group"), nil
			},
		}},
		Rules: []Rule{{
			Trigger: Trigger{Kind: TriggerText},
			States:  []state.ID{"type_group"},
			Handle: func(c tele.Context, conv *state.Conversation) (Outcome, error) {
				conv.Set("group", "ИУ7-34Б")
				conv.Set("full_name", "clobbered")
				return Move("done"), errors.New("storage unavailable")
			},
		}},
	}
	require.NoError(t, reg.Add(f))
	d := NewDispatcher(reg, state.NewStore())

	c := newFakeContext(5, 7)
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCommand, Value: "/reg"}))
	require.Error(t, d.Dispatch(c, Event{Kind: TriggerText, Text: "ИУ7-34Б"}))

	conv, _ := d.Store().Get(state.Key{ChatID: 5, UserID: 7})
	require.Equal(t, state.ID("type_group"), conv.State)
	name, _ := conv.GetString("full_name")
	require.Equal(t, "Иванов Иван Иванович", name)
	_, ok := conv.Get("group")
	require.False(t, ok)
}

func TestChildOutcomeMapping(t *testing.T) {
	child := &Flow{
		Name: "describe",
		Rules: []Rule{
			{
				Trigger: Trigger{Kind: TriggerCallback, Value: "confirm"},
				Handle: func(c tele.Context, conv *state.Conversation) (Outcome, error) {
					return End(ResultCompleted), nil
				},
			},
			{
				Trigger: Trigger{Kind: TriggerCallback, Value: "abort"},
				Handle: func(c tele.Context, conv *state.Conversation) (Outcome, error) {
					return End(ResultCancelled), nil
				},
			},
		},
	}
	parent := &Flow{
		Name:  "registration",
		Entry: []Rule{{Trigger: Trigger{Kind: TriggerCommand, Value: "/reg"}, Handle: moveTo("select_action")}},
		Rules: []Rule{{
			Trigger: Trigger{Kind: TriggerCallback, Value: "reg_add"},
			States:  []state.ID{"select_action"},
			Handle: func(c tele.Context, conv *state.Conversation) (Outcome, error) {
				return Child("describe", "select_attribute"), nil
			},
		}},
		Children:      []*Flow{child},
		ChildOutcomes: map[Result]state.ID{ResultCompleted: "select_action"},
	}

	reg := NewRegistry()
	require.NoError(t, reg.Add(parent))
	d := NewDispatcher(reg, state.NewStore())
	key := state.Key{ChatID: 7, UserID: 8}

	c := newFakeContext(7, 8)
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCommand, Value: "/reg"}))
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCallback, Value: "reg_add"}))

	conv, _ := d.Store().Get(key)
	require.Equal(t, "describe", conv.Flow)
	require.Equal(t, state.ID("select_attribute"), conv.State)

	// Completion maps back into the parent.
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCallback, Value: "confirm"}))
	conv, ok := d.Store().Get(key)
	require.True(t, ok)
	require.Equal(t, "registration", conv.Flow)
	require.Equal(t, state.ID("select_action"), conv.State)

	// Cancellation has no mapping, so the whole conversation ends.
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCallback, Value: "reg_add"}))
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCallback, Value: "abort"}))
	require.False(t, d.InProgress(key))
}

func TestGlobalCancelEndsAnyFlow(t *testing.T) {
	reg := NewRegistry()
	f := &Flow{
		Name:  "deadline",
		Entry: []Rule{{Trigger: Trigger{Kind: TriggerCommand, Value: "/deadline"}, Handle: moveTo("pick_subject")}},
	}
	require.NoError(t, reg.Add(f))
	require.NoError(t, reg.AddGlobal(Rule{
		Trigger: Trigger{Kind: TriggerCommand, Value: "/cancel"},
		Handle: func(c tele.Context, conv *state.Conversation) (Outcome, error) {
			return End(ResultCancelled), nil
		},
	}))
	d := NewDispatcher(reg, state.NewStore())
	key := state.Key{ChatID: 9, UserID: 9}

	c := newFakeContext(9, 9)
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCommand, Value: "/deadline"}))
	require.True(t, d.InProgress(key))
	require.NoError(t, d.Dispatch(c, Event{Kind: TriggerCommand, Value: "/cancel"}))
	require.False(t, d.InProgress(key))
}

func TestCallbackEventDecoding(t *testing.T) {
	ev := CallbackEvent(&tele.Callback{Data: "\\fdeadline_pick|42"})
	require.Equal(t, "deadline_pick", ev.Value)
	require.Equal(t, "42", ev.Payload)

	ev = CallbackEvent(&tele.Callback{Unique: "confirm", Data: "payload"})
	require.Equal(t, "confirm", ev.Value)
	require.Equal(t, "payload", ev.Payload)
}

package flow

import (
	"fmt"
	"maps"

	"github.com/m3rciful/studbot/core/logger"
	tghelpers "github.com/m3rciful/studbot/core/telegram/helpers"
	"github.com/m3rciful/studbot/core/telegram/state"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Dispatcher routes classified events to flow handlers and applies the
// resulting transitions. Updates for the same (chat, user) key are
// processed strictly one at a time.
type Dispatcher struct {
	reg   *Registry
	store *state.Store
}

// NewDispatcher wires a dispatcher over the given registry and store.
func NewDispatcher(reg *Registry, store *state.Store) *Dispatcher {
	if store == nil {
		store = state.NewStore()
	}
	return &Dispatcher{reg: reg, store: store}
}

// Store exposes the conversation store, mainly for tests and diagnostics.
func (d *Dispatcher) Store() *state.Store {
	return d.store
}

// InProgress reports whether the key has an active conversation.
func (d *Dispatcher) InProgress(key state.Key) bool {
	return d.store.InProgress(key)
}

// Dispatch routes one event. An event no rule claims is a silent no-op:
// the conversation, if any, is left untouched. A handler error leaves the
// state unchanged and is surfaced to the caller.
func (d *Dispatcher) Dispatch(c tele.Context, ev Event) error {
	_, err := d.DispatchHandled(c, ev)
	return err
}

// DispatchHandled routes one event and additionally reports whether any
// rule claimed it, letting the router fall back for unknown input.
func (d *Dispatcher) DispatchHandled(c tele.Context, ev Event) (bool, error) {
	key := KeyFrom(c)
	release := d.store.Acquire(key)
	defer release()

	if conv, active := d.store.Get(key); active {
		if f, ok := d.reg.Flow(conv.Flow); ok {
			if rule, matched := matchRules(f.Rules, ev, conv.State); matched {
				return true, d.run(c, ev, key, conv, f, rule)
			}
		}
		if rule, matched := matchRules(d.reg.Globals(), ev, conv.State); matched {
			return true, d.run(c, ev, key, conv, nil, rule)
		}
		d.logUnmatched(c, ev, conv)
		return false, nil
	}

	if f, rule, ok := d.reg.Entry(ev); ok {
		conv := state.NewConversation(f.Name, state.None)
		out, err := rule.Handle(c, conv)
		if err != nil {
			return true, fmt.Errorf("flow %s: entry: %w", f.Name, err)
		}
		switch out.kind {
		case outcomeMove:
			conv.State = out.next
			d.store.Put(key, conv)
			d.logTransition(c, ev, f.Name, state.None, out.next, "begin")
		case outcomeChild:
			return true, fmt.Errorf("flow %s: entry rule cannot start a child flow", f.Name)
		default:
			// One-shot handlers (Stay/End) leave no conversation behind.
		}
		return true, nil
	}

	return false, nil
}

func (d *Dispatcher) run(c tele.Context, ev Event, key state.Key, conv *state.Conversation, f *Flow, rule Rule) error {
	flowName := conv.Flow
	prev := conv.State
	saved := maps.Clone(conv.Data)

	out, err := rule.Handle(c, conv)
	if err != nil {
		// State and scratch data stay where they were; a retried update
		// must see the conversation exactly as before the failure.
		conv.Data = saved
		return fmt.Errorf("flow %s state %s: %w", flowName, prev, err)
	}

	switch out.kind {
	case outcomeStay:
		conv.Touch()
	case outcomeMove:
		conv.State = out.next
		conv.Touch()
		d.logTransition(c, ev, flowName, prev, out.next, "move")
	case outcomeChild:
		if _, ok := d.reg.Flow(out.child); !ok {
			return fmt.Errorf("flow %s: unknown child flow %q", flowName, out.child)
		}
		conv.PushChild(out.child, out.next)
		d.logTransition(c, ev, out.child, prev, out.next, "child")
	case outcomeEnd:
		d.finish(c, ev, key, conv, out.result)
	}
	return nil
}

// finish ends the current flow. A child maps its result through the
// parent's ChildOutcomes table; without a mapping, or at the top level, the
// conversation ends.
func (d *Dispatcher) finish(c tele.Context, ev Event, key state.Key, conv *state.Conversation, result Result) {
	ended := conv.Flow
	if conv.HasParent() {
		conv.PopParent()
		if parent, ok := d.reg.Flow(conv.Flow); ok {
			if next, mapped := parent.ChildOutcomes[result]; mapped {
				conv.State = next
				d.logTransition(c, ev, conv.Flow, state.ID(ended), next, "resume")
				return
			}
		}
	}
	d.store.End(key)
	ctx := tghelpers.BuildContext(c)
	logger.LogEvent(ctx, logger.FLOW, slog.LevelInfo, "flow.end",
		slog.String("flow", ended),
		slog.String("outcome", string(result)),
	)
}

func (d *Dispatcher) logTransition(c tele.Context, ev Event, flowName string, from, to state.ID, kind string) {
	ctx := tghelpers.BuildContext(c)
	logger.LogEvent(ctx, logger.FLOW, slog.LevelDebug, "flow.transition",
		slog.String("flow", flowName),
		slog.String("state", string(from)),
		slog.String("next", string(to)),
		slog.String("outcome", kind),
		slog.String("cb_key", ev.Value),
	)
}

func (d *Dispatcher) logUnmatched(c tele.Context, ev Event, conv *state.Conversation) {
	if !logger.ShouldSampleDebug() {
		return
	}
	ctx := tghelpers.BuildContext(c)
	logger.LogEvent(ctx, logger.FLOW, slog.LevelDebug, "flow.unmatched",
		slog.String("flow", conv.Flow),
		slog.String("state", string(conv.State)),
		slog.String("cb_key", ev.Value),
	)
}

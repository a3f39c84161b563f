package flow

import (
	"regexp"

	"github.com/m3rciful/studbot/core/telegram/commands"
	"github.com/m3rciful/studbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Trigger declares what kind of update a rule reacts to. An empty Value
// matches any value of the kind; Pattern optionally restricts text triggers.
type Trigger struct {
	Kind    TriggerKind
	Value   string
	Pattern *regexp.Regexp
}

// Matches reports whether the trigger accepts the event.
func (t Trigger) Matches(ev Event) bool {
	if t.Kind != ev.Kind {
		return false
	}
	if t.Value != "" && t.Value != ev.Value {
		return false
	}
	if t.Pattern != nil && !t.Pattern.MatchString(ev.Text) {
		return false
	}
	return true
}

func (t Trigger) key() string {
	k := t.Kind.String() + "|" + t.Value
	if t.Pattern != nil {
		k += "|" + t.Pattern.String()
	}
	return k
}

// Result is the typed outcome a flow finishes with. Parents map results to
// their own next step through ChildOutcomes.
type Result string

const (
	// ResultCompleted marks a flow that finished its work.
	ResultCompleted Result = "completed"
	// ResultCancelled marks a flow aborted by the user.
	ResultCancelled Result = "cancelled"
)

type outcomeKind int

const (
	outcomeStay outcomeKind = iota
	outcomeMove
	outcomeChild
	outcomeEnd
)

// Outcome tells the dispatcher how to advance the conversation after a
// handler ran successfully.
type Outcome struct {
	kind   outcomeKind
	next   state.ID
	child  string
	result Result
}

// Stay keeps the conversation at the current step.
func Stay() Outcome { return Outcome{kind: outcomeStay} }

// Move advances the conversation to the given step. Returned from an entry
// rule it begins a new conversation at that step.
func Move(next state.ID) Outcome { return Outcome{kind: outcomeMove, next: next} }

// Child suspends the current flow and enters the named child flow at the
// given step.
func Child(name string, start state.ID) Outcome {
	return Outcome{kind: outcomeChild, next: start, child: name}
}

// End finishes the flow with the given result. In a child flow the parent
// resumes at ChildOutcomes[result]; at the top level the conversation ends.
func End(result Result) Outcome { return Outcome{kind: outcomeEnd, result: result} }

// HandlerFunc processes one matched update. The conversation is locked for
// the duration of the call; for entry rules it is a fresh, not yet stored
// conversation that only persists if the handler returns Move or Child.
type HandlerFunc func(c tele.Context, conv *state.Conversation) (Outcome, error)

// Rule binds a trigger and a set of states to a handler. A nil States slice
// matches any state of the flow.
type Rule struct {
	Trigger Trigger
	States  []state.ID
	Handle  HandlerFunc
}

func (r Rule) inState(st state.ID) bool {
	for _, s := range r.States {
		if s == st {
			return true
		}
	}
	return false
}

// Flow is a named conversation definition.
//
// Entry rules fire when the key has no active conversation and may begin
// one. Rules fire while a conversation of this flow is active. Children are
// flows reachable through the Child outcome; when a child ends, the parent
// resumes at ChildOutcomes[result] or, absent a mapping, the whole
// conversation ends.
type Flow struct {
	Name          string
	Entry         []Rule
	Rules         []Rule
	Children      []*Flow
	ChildOutcomes map[Result]state.ID

	// Commands lists the slash commands this flow owns, keyed by name,
	// for the bot command menu.
	Commands map[string]commands.Command
}

// match returns the first rule accepting the event, preferring rules bound
// to the exact current state over any-state rules. Registration order
// breaks ties.
func matchRules(rules []Rule, ev Event, st state.ID) (Rule, bool) {
	for _, r := range rules {
		if len(r.States) > 0 && r.inState(st) && r.Trigger.Matches(ev) {
			return r, true
		}
	}
	for _, r := range rules {
		if len(r.States) == 0 && r.Trigger.Matches(ev) {
			return r, true
		}
	}
	return Rule{}, false
}

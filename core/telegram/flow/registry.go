package flow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/m3rciful/studbot/core/logger"
	"github.com/m3rciful/studbot/core/telegram/commands"
	"github.com/m3rciful/studbot/core/telegram/state"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

type entryBinding struct {
	flow *Flow
	rule Rule
}

// Registry holds all registered flows, their entry triggers, and the bot
// command menu. Registration happens once at startup; lookups afterwards
// are read-only.
type Registry struct {
	flows    map[string]*Flow
	entries  []entryBinding
	claimed  map[string]string // trigger/state claim -> flow name
	globals  []Rule
	commands map[string]commands.Command

	callbackNotFound tele.HandlerFunc
}

// NewRegistry creates an empty Registry with a default unknown-callback
// fallback.
func NewRegistry() *Registry {
	return &Registry{
		flows:    make(map[string]*Flow),
		claimed:  make(map[string]string),
		commands: make(map[string]commands.Command),
		callbackNotFound: func(c tele.Context) error {
			_ = c.Respond(&tele.CallbackResponse{Text: "Неизвестное действие"})
			return nil
		},
	}
}

// Add registers a flow, its children, its entry triggers, and its command
// menu entries. A second claim on an identical (trigger, state) pair is an
// error; startup should treat it as fatal.
func (r *Registry) Add(f *Flow) error {
	if r == nil || f == nil {
		return fmt.Errorf("flow: nil registration")
	}
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("flow: empty flow name")
	}
	if _, exists := r.flows[f.Name]; exists {
		return fmt.Errorf("flow: duplicate flow %q", f.Name)
	}

	if err := r.claimRules(f.Name, "entry", f.Entry); err != nil {
		return err
	}
	if err := r.claimRules(f.Name, "rule", f.Rules); err != nil {
		return err
	}

	r.flows[f.Name] = f
	for _, rule := range f.Entry {
		if rule.Handle == nil {
			return fmt.Errorf("flow %q: entry rule without handler", f.Name)
		}
		r.entries = append(r.entries, entryBinding{flow: f, rule: rule})
	}

	for name, meta := range f.Commands {
		if err := r.registerCommand(name, meta); err != nil {
			return err
		}
	}

	for _, child := range f.Children {
		if err := r.Add(child); err != nil {
			return err
		}
	}

	logger.TWire.LogAttrs(context.Background(), slog.LevelDebug, "register.flow",
		slog.String("flow", f.Name),
		slog.Int("entries", len(f.Entry)),
		slog.Int("rules", len(f.Rules)),
		slog.Int("children", len(f.Children)),
	)
	return nil
}

func (r *Registry) claimRules(flowName, scope string, rules []Rule) error {
	for _, rule := range rules {
		if rule.Handle == nil {
			return fmt.Errorf("flow %q: %s rule without handler", flowName, scope)
		}
		states := rule.States
		if len(states) == 0 {
			states = []state.ID{stateAny}
		}
		for _, st := range states {
			// Entry triggers share a global namespace; in-flow rules are
			// scoped to their flow.
			claim := "entry/" + rule.Trigger.key()
			if scope != "entry" {
				claim = "rule/" + flowName + "/" + rule.Trigger.key() + "@" + string(st)
			}
			if owner, taken := r.claimed[claim]; taken {
				return fmt.Errorf("flow %q: trigger %s already claimed by %q for state %q",
					flowName, rule.Trigger.key(), owner, st)
			}
			r.claimed[claim] = flowName
		}
	}
	return nil
}

// AddGlobal registers a rule matched in any flow and any state, after the
// active flow's own rules. Used for flow-agnostic triggers such as /cancel.
func (r *Registry) AddGlobal(rule Rule) error {
	if rule.Handle == nil {
		return fmt.Errorf("flow: global rule without handler")
	}
	for _, g := range r.globals {
		if g.Trigger.key() == rule.Trigger.key() {
			return fmt.Errorf("flow: duplicate global trigger %s", rule.Trigger.key())
		}
	}
	r.globals = append(r.globals, rule)
	return nil
}

func (r *Registry) registerCommand(name string, meta commands.Command) error {
	if name == "" || name[0] != '/' || meta.Description == "" {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", "invalid"),
		)
		return fmt.Errorf("flow: invalid command registration %q", name)
	}
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("flow: duplicate command %s", name)
	}
	r.commands[name] = meta
	return nil
}

// Flow returns a registered flow by name.
func (r *Registry) Flow(name string) (*Flow, bool) {
	f, ok := r.flows[name]
	return f, ok
}

// Entry returns the first registered entry binding that accepts the event.
func (r *Registry) Entry(ev Event) (*Flow, Rule, bool) {
	for _, b := range r.entries {
		if b.rule.Trigger.Matches(ev) {
			return b.flow, b.rule, true
		}
	}
	return nil, Rule{}, false
}

// Globals returns the flow-agnostic rules in registration order.
func (r *Registry) Globals() []Rule {
	return r.globals
}

// Commands returns all registered commands keyed by name.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// ListCommands returns sorted tele.Command entries, optionally filtering
// out hidden and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for name, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: meta.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// LookupCommand resolves a command name or alias to its canonical key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = commandToken(name)
	if name == "" {
		return "", commands.Command{}, false
	}
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	if meta, ok := r.commands[name]; ok {
		return name, meta, true
	}
	for key, meta := range r.commands {
		for _, alias := range meta.Aliases {
			if alias == name || "/"+alias == name {
				return key, meta, true
			}
		}
	}
	return "", commands.Command{}, false
}

// SetCallbackNotFound replaces the fallback handler for unknown callbacks.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

// CallbackNotFound returns the fallback handler for unknown callbacks.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// commandToken strips the bot mention and arguments from a command message.
func commandToken(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if i := strings.IndexByte(text, ' '); i >= 0 {
		text = text[:i]
	}
	if i := strings.IndexByte(text, '@'); i >= 0 {
		text = text[:i]
	}
	return text
}

// stateAny is the claim placeholder for rules without a state list.
const stateAny state.ID = "*"

// SetupCommands publishes the visible command menu to Telegram.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", err.Error()),
		)
		return
	}
	logger.TWire.LogAttrs(context.Background(), slog.LevelInfo, "register.commands",
		slog.Int("count", len(list)),
	)
}

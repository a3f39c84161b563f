package flow

import (
	"strings"

	"github.com/m3rciful/studbot/core/telegram/callbacks"
	"github.com/m3rciful/studbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// TriggerKind classifies the update types a rule can react to.
type TriggerKind int

const (
	// TriggerCommand matches a slash command.
	TriggerCommand TriggerKind = iota + 1
	// TriggerCallback matches an inline button press by its unique key.
	TriggerCallback
	// TriggerText matches a plain text message.
	TriggerText
	// TriggerDocument matches an uploaded document.
	TriggerDocument
	// TriggerMember matches a chat member status update.
	TriggerMember
)

func (k TriggerKind) String() string {
	switch k {
	case TriggerCommand:
		return "command"
	case TriggerCallback:
		return "callback"
	case TriggerText:
		return "text"
	case TriggerDocument:
		return "document"
	case TriggerMember:
		return "member"
	}
	return "unknown"
}

// Event is one incoming update, already classified by the router.
type Event struct {
	Kind    TriggerKind
	Value   string // command name or callback key
	Payload string // callback payload after '|'
	Text    string
}

// CommandEvent builds an event for a slash command.
func CommandEvent(c tele.Context, name string) Event {
	return Event{Kind: TriggerCommand, Value: name, Text: c.Text()}
}

// CallbackEvent builds an event from a callback update, decoding Telebot's
// \f<unique>|<payload> encoding when Unique is not populated.
func CallbackEvent(cb *tele.Callback) Event {
	key, payload := splitCallbackData(cb)
	return Event{Kind: TriggerCallback, Value: key, Payload: payload}
}

// TextEvent builds an event for a plain text message.
func TextEvent(c tele.Context) Event {
	return Event{Kind: TriggerText, Text: c.Text()}
}

// DocumentEvent builds an event for a document upload. Value carries the
// lowercased file extension including the dot.
func DocumentEvent(c tele.Context) Event {
	ext := ""
	if msg := c.Message(); msg != nil && msg.Document != nil {
		name := msg.Document.FileName
		if i := strings.LastIndex(name, "."); i >= 0 {
			ext = strings.ToLower(name[i:])
		}
	}
	return Event{Kind: TriggerDocument, Value: ext, Text: c.Text()}
}

// MemberEvent builds an event for a chat member update.
func MemberEvent() Event {
	return Event{Kind: TriggerMember}
}

// KeyFrom derives the conversation key for the update.
func KeyFrom(c tele.Context) state.Key {
	var key state.Key
	if chat := c.Chat(); chat != nil {
		key.ChatID = chat.ID
	}
	if sender := c.Sender(); sender != nil {
		key.UserID = sender.ID
	}
	return key
}

func splitCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return callbacks.ParseCallbackData(cb)
}

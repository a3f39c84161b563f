// Package flows defines the bot's conversations: registration, lab
// submission, deadlines, subject survey, admissions, spreadsheet creation
// and chat membership handling. Each flow is a state machine registered on
// the shared dispatcher.
package flows

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/bot/deadlines"
	"github.com/m3rciful/studbot/bot/roster"
	"github.com/m3rciful/studbot/bot/storage/rowstore"
	"github.com/m3rciful/studbot/bot/subjects"
	"github.com/m3rciful/studbot/bot/works"
	"github.com/m3rciful/studbot/core/logger"
	"github.com/m3rciful/studbot/core/sched"
	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/format"
	"github.com/m3rciful/studbot/core/telegram/helpers"
	"github.com/m3rciful/studbot/core/telegram/state"
)

// cancelKey is the shared callback key of the inline cancel button.
const cancelKey = "flow_cancel"

const (
	msgCancelled  = "Действие отменено."
	msgRetryLater = "Что-то пошло не так, попробуйте позже."
	msgNoUsername = "У вас не задан username в Telegram, без него я не смогу вас записать."
)

// Deps carries the services and settings the flows run on.
type Deps struct {
	Roster    *roster.Service
	Works     *works.Service
	Deadlines *deadlines.Service
	Subjects  *subjects.Service
	Creator   rowstore.Creator
	Sched     sched.Delayer
	KickAfter time.Duration
}

// Register adds every flow and the global cancel rules to the registry.
func Register(reg *flow.Registry, deps Deps) error {
	if deps.Roster == nil || deps.Works == nil || deps.Deadlines == nil || deps.Subjects == nil {
		return fmt.Errorf("flows: missing service dependency")
	}
	for _, f := range []*flow.Flow{
		basicFlow(deps),
		registrationFlow(deps),
		membershipFlow(deps),
		admissionsFlow(deps),
		changeNameFlow(deps),
		removeStudentFlow(deps),
		deadlineFlow(deps),
		deadlineSetFlow(deps),
		subjectFlow(deps),
		sheetCreateFlow(deps),
		labsFlow(deps),
	} {
		if err := reg.Add(f); err != nil {
			return err
		}
	}
	return registerGlobals(reg)
}

// registerGlobals wires /cancel and the inline cancel button so any
// conversation can be aborted from any step.
func registerGlobals(reg *flow.Registry) error {
	cancel := func(c tele.Context, _ *state.Conversation) (flow.Outcome, error) {
		_ = helpers.SendText(c, msgCancelled)
		return flow.End(flow.ResultCancelled), nil
	}
	if err := reg.AddGlobal(flow.Rule{
		Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/cancel"},
		Handle:  cancel,
	}); err != nil {
		return err
	}
	return reg.AddGlobal(flow.Rule{
		Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cancelKey},
		Handle:  cancel,
	})
}

// username returns the sender's Telegram username, the roster row key.
func username(c tele.Context) string {
	if s := c.Sender(); s != nil {
		return s.Username
	}
	return ""
}

// callbackPayload extracts the payload of the pressed inline button.
func callbackPayload(c tele.Context) string {
	return flow.CallbackEvent(c.Callback()).Payload
}

// escapeMD escapes sheet values before embedding them in markdown replies.
func escapeMD(s string) string {
	out, err := format.EscapeMarkdown(s, format.MarkdownV1)
	if err != nil {
		return s
	}
	return out
}

// reqCtx builds the request-scoped context for service calls.
func reqCtx(c tele.Context) context.Context {
	return helpers.BuildContext(c)
}

// storageFail handles an unexpected service failure: the failure is
// logged, the user gets a generic retry message, and the conversation is
// reset so they are not stuck mid-flow.
func storageFail(c tele.Context, err error) (flow.Outcome, error) {
	logger.LogEvent(reqCtx(c), logger.FLOW, slog.LevelWarn, "flow.storage_error",
		slog.String("err", err.Error()),
	)
	_ = helpers.SendText(c, msgRetryLater)
	return flow.End(flow.ResultCancelled), nil
}

package flows

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/bot/works"
	"github.com/m3rciful/studbot/core/telegram/commands"
	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/helpers"
	"github.com/m3rciful/studbot/core/telegram/keyboard"
	"github.com/m3rciful/studbot/core/telegram/state"
)

const stateAwaitThreshold state.ID = "await_threshold"

// admissionsFlow computes admission status for the whole roster against a
// lab-count threshold and writes it back in one batch.
func admissionsFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "admissions",
		Entry: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/admission"},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				err := helpers.SendMD(c,
					"Введите минимальное число зачтённых лабораторных для допуска:",
					keyboard.SingleCancelMarkup(cancelKey))
				if err != nil {
					return flow.Stay(), err
				}
				return flow.Move(stateAwaitThreshold), nil
			},
		}},
		Rules: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerText},
			States:  []state.ID{stateAwaitThreshold},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				threshold, err := strconv.Atoi(strings.TrimSpace(c.Text()))
				if err != nil || threshold < 0 {
					_ = helpers.SendText(c, "Нужно целое неотрицательное число. Попробуйте ещё раз.")
					return flow.Stay(), nil
				}

				students, err := deps.Roster.List(reqCtx(c))
				if err != nil {
					return storageFail(c, err)
				}
				sum, err := deps.Works.ApplyAdmissions(reqCtx(c), students, threshold)
				if err != nil {
					return storageFail(c, err)
				}

				_ = helpers.SendMD(c, formatAdmissions(sum, threshold))
				return flow.End(flow.ResultCompleted), nil
			},
		}},
		Commands: map[string]commands.Command{
			"/admission": {Description: "Пересчитать допуски", AdminOnly: true},
		},
	}
}

func formatAdmissions(sum works.Summary, threshold int) string {
	if sum.Total == 0 {
		return fmt.Sprintf("Порог %d: допуск не получил никто.", threshold)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Допуск при пороге %d получили:\n", threshold)
	for _, group := range sum.Groups() {
		fmt.Fprintf(&b, "\n*%s*\n", escapeMD(group))
		for _, name := range sum.Admitted[group] {
			fmt.Fprintf(&b, "— %s\n", escapeMD(name))
		}
	}
	return b.String()
}

package flows

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/core/telegram/commands"
	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/helpers"
	"github.com/m3rciful/studbot/core/telegram/keyboard"
	"github.com/m3rciful/studbot/core/telegram/state"
)

const (
	statePickDiscipline state.ID = "pick_discipline"
	stateSetDiscipline  state.ID = "set_discipline"
	stateTypeDate       state.ID = "type_date"
)

const (
	cbDeadlinePick = "dl_pick"
	cbDeadlineSet  = "dl_set"
)

// deadlineFlow shows the deadline of a chosen discipline.
func deadlineFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "deadline",
		Entry: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/deadline"},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				disciplines, err := deps.Deadlines.Disciplines(reqCtx(c))
				if err != nil {
					return storageFail(c, err)
				}
				if len(disciplines) == 0 {
					_ = helpers.SendText(c, "Список дисциплин пока пуст.")
					return flow.Stay(), nil
				}
				markup := keyboard.NamedChoices(cbDeadlinePick, disciplines, 1)
				err = helpers.SendMD(c, "По какой дисциплине показать дедлайн?",
					keyboard.WithCancelRow(markup, cancelKey))
				if err != nil {
					return flow.Stay(), err
				}
				return flow.Move(statePickDiscipline), nil
			},
		}},
		Rules: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbDeadlinePick},
			States:  []state.ID{statePickDiscipline},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				discipline := callbackPayload(c)
				entry, ok, err := deps.Deadlines.Find(reqCtx(c), discipline)
				if err != nil {
					return storageFail(c, err)
				}
				switch {
				case !ok:
					_ = helpers.SendText(c, "Такой дисциплины нет в списке.")
				case strings.TrimSpace(entry.Date) == "":
					_ = helpers.SendMD(c, fmt.Sprintf("*%s*: дедлайн пока не назначен.", escapeMD(discipline)))
				default:
					_ = helpers.SendMD(c, fmt.Sprintf("*%s*: сдать до %s.", escapeMD(discipline), escapeMD(entry.Date)))
				}
				return flow.End(flow.ResultCompleted), nil
			},
		}},
		Commands: map[string]commands.Command{
			"/deadline": {Description: "Показать дедлайн по дисциплине"},
		},
	}
}

// deadlineSetFlow lets the course staff assign a deadline date.
func deadlineSetFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "deadline_set",
		Entry: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/deadline_set"},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				disciplines, err := deps.Deadlines.Disciplines(reqCtx(c))
				if err != nil {
					return storageFail(c, err)
				}
				if len(disciplines) == 0 {
					_ = helpers.SendText(c, "Список дисциплин пока пуст.")
					return flow.Stay(), nil
				}
				markup := keyboard.NamedChoices(cbDeadlineSet, disciplines, 1)
				err = helpers.SendMD(c, "Для какой дисциплины назначить дедлайн?",
					keyboard.WithCancelRow(markup, cancelKey))
				if err != nil {
					return flow.Stay(), err
				}
				return flow.Move(stateSetDiscipline), nil
			},
		}},
		Rules: []flow.Rule{
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbDeadlineSet},
				States:  []state.ID{stateSetDiscipline},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					conv.Set("discipline", callbackPayload(c))
					_ = helpers.SendText(c, "Введите дату дедлайна (например, 24.12):")
					return flow.Move(stateTypeDate), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerText},
				States:  []state.ID{stateTypeDate},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					discipline, _ := conv.GetString("discipline")
					date := strings.TrimSpace(c.Text())
					if _, ok := helpers.ParseFlexibleDate(date); !ok {
						_ = helpers.SendText(c, "Не похоже на дату. Введите, например, 24.12.")
						return flow.Stay(), nil
					}
					if err := deps.Deadlines.Set(reqCtx(c), discipline, date); err != nil {
						return storageFail(c, err)
					}
					_ = helpers.SendMD(c, fmt.Sprintf("Дедлайн по *%s* назначен на %s.", escapeMD(discipline), date))
					return flow.End(flow.ResultCompleted), nil
				},
			},
		},
		Commands: map[string]commands.Command{
			"/deadline_set": {Description: "Назначить дедлайн", AdminOnly: true},
		},
	}
}

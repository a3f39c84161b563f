package flows

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/bot/roster"
	"github.com/m3rciful/studbot/core/telegram/commands"
	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/helpers"
	"github.com/m3rciful/studbot/core/telegram/keyboard"
	"github.com/m3rciful/studbot/core/telegram/state"
)

const (
	stateSelectStudent state.ID = "select_student"
	stateTypeName      state.ID = "type_name"
	stateRemovePick    state.ID = "remove_pick"
)

const (
	cbPickStudent   = "cn_pick"
	cbRemoveStudent = "rm_pick"
)

// changeNameFlow lets the course staff fix a student's stored full name.
func changeNameFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "changename",
		Entry: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/change_name"},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				usernames, err := deps.Roster.Usernames(reqCtx(c))
				if err != nil {
					return storageFail(c, err)
				}
				if len(usernames) == 0 {
					_ = helpers.SendText(c, "В реестре пока нет ни одного студента.")
					return flow.Stay(), nil
				}
				markup := keyboard.NamedChoices(cbPickStudent, usernames, 2)
				err = helpers.SendMD(c, "Чьё ФИО нужно изменить?",
					keyboard.WithCancelRow(markup, cancelKey))
				if err != nil {
					return flow.Stay(), err
				}
				return flow.Move(stateSelectStudent), nil
			},
		}},
		Rules: []flow.Rule{
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbPickStudent},
				States:  []state.ID{stateSelectStudent},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					conv.Set("username", callbackPayload(c))
					_ = helpers.SendText(c, "Введите новое ФИО:")
					return flow.Move(stateTypeName), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerText},
				States:  []state.ID{stateTypeName},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					target, _ := conv.GetString("username")
					reason, err := deps.Roster.SetName(reqCtx(c), target, c.Text())
					if err != nil {
						return storageFail(c, err)
					}
					if reason == roster.ReasonBadName {
						_ = helpers.SendText(c, "ФИО должно состоять из 3 или 4 слов без цифр и знаков. Попробуйте ещё раз.")
						return flow.Stay(), nil
					}
					_ = helpers.SendText(c, fmt.Sprintf("Готово, ФИО студента @%s обновлено.", target))
					return flow.End(flow.ResultCompleted), nil
				},
			},
		},
		Commands: map[string]commands.Command{
			"/change_name": {Description: "Изменить ФИО студента", AdminOnly: true},
		},
	}
}

// removeStudentFlow drops a student from the roster entirely.
func removeStudentFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "removestudent",
		Entry: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/remove_student"},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				usernames, err := deps.Roster.Usernames(reqCtx(c))
				if err != nil {
					return storageFail(c, err)
				}
				if len(usernames) == 0 {
					_ = helpers.SendText(c, "В реестре пока нет ни одного студента.")
					return flow.Stay(), nil
				}
				markup := keyboard.NamedChoices(cbRemoveStudent, usernames, 2)
				err = helpers.SendMD(c, "Кого удалить из реестра?",
					keyboard.WithCancelRow(markup, cancelKey))
				if err != nil {
					return flow.Stay(), err
				}
				return flow.Move(stateRemovePick), nil
			},
		}},
		Rules: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbRemoveStudent},
			States:  []state.ID{stateRemovePick},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				target := callbackPayload(c)
				if err := deps.Roster.Remove(reqCtx(c), target); err != nil {
					return storageFail(c, err)
				}
				_ = helpers.SendText(c, fmt.Sprintf("Студент @%s удалён из реестра.", target))
				return flow.End(flow.ResultCompleted), nil
			},
		}},
		Commands: map[string]commands.Command{
			"/remove_student": {Description: "Удалить студента из реестра", AdminOnly: true},
		},
	}
}

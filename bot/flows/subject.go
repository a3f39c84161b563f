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
	statePickSubjectShow state.ID = "pick_subject_show"
	statePickSubjectAdd  state.ID = "pick_subject_add"
	stateTypeDescription state.ID = "type_description"
)

const (
	cbSubjectShow = "subj_show"
	cbSubjectAdd  = "subj_add"
)

// subjectFlow is the discipline survey: reading stored descriptions and
// collecting new ones.
func subjectFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "subject",
		Entry: []flow.Rule{
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/subject_description"},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					return askSubject(c, deps, cbSubjectShow,
						"По какой дисциплине показать описание?", statePickSubjectShow)
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/subject_description_add"},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					return askSubject(c, deps, cbSubjectAdd,
						"Какую дисциплину будем описывать?", statePickSubjectAdd)
				},
			},
		},
		Rules: []flow.Rule{
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbSubjectShow},
				States:  []state.ID{statePickSubjectShow},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					subject := callbackPayload(c)
					desc, ok, err := deps.Subjects.Describe(reqCtx(c), subject)
					if err != nil {
						return storageFail(c, err)
					}
					if !ok {
						_ = helpers.SendMD(c, fmt.Sprintf("Для *%s* описания пока нет. Добавьте его через /subject_description_add.", escapeMD(subject)))
					} else {
						_ = helpers.SendMD(c, fmt.Sprintf("*%s*\n%s", escapeMD(subject), desc))
					}
					return flow.End(flow.ResultCompleted), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbSubjectAdd},
				States:  []state.ID{statePickSubjectAdd},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					conv.Set("subject", callbackPayload(c))
					_ = helpers.SendText(c, "Напишите описание дисциплины одним сообщением:")
					return flow.Move(stateTypeDescription), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerText},
				States:  []state.ID{stateTypeDescription},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					subject, _ := conv.GetString("subject")
					desc := strings.TrimSpace(c.Text())
					if desc == "" {
						_ = helpers.SendText(c, "Описание не может быть пустым. Попробуйте ещё раз.")
						return flow.Stay(), nil
					}
					if err := deps.Subjects.SetDescription(reqCtx(c), subject, desc); err != nil {
						return storageFail(c, err)
					}
					_ = helpers.SendMD(c, fmt.Sprintf("Описание для *%s* сохранено, спасибо!", escapeMD(subject)))
					return flow.End(flow.ResultCompleted), nil
				},
			},
		},
		Commands: map[string]commands.Command{
			"/subject_description":     {Description: "Описание дисциплины"},
			"/subject_description_add": {Description: "Добавить описание дисциплины"},
		},
	}
}

func askSubject(c tele.Context, deps Deps, cbKey, prompt string, next state.ID) (flow.Outcome, error) {
	subjectsList, err := deps.Subjects.List(reqCtx(c))
	if err != nil {
		return storageFail(c, err)
	}
	if len(subjectsList) == 0 {
		_ = helpers.SendText(c, "Список дисциплин пока пуст.")
		return flow.Stay(), nil
	}
	markup := keyboard.NamedChoices(cbKey, subjectsList, 1)
	if err := helpers.SendMD(c, prompt, keyboard.WithCancelRow(markup, cancelKey)); err != nil {
		return flow.Stay(), err
	}
	return flow.Move(next), nil
}

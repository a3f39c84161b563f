package flows

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/core/telegram/commands"
	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/helpers"
	"github.com/m3rciful/studbot/core/telegram/keyboard"
	"github.com/m3rciful/studbot/core/telegram/state"
)

const stateAwaitFile state.ID = "await_file"

// allowedReportExts are the document extensions accepted as lab reports.
var allowedReportExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".zip":  true,
}

// ungradedMark is recorded for a fresh submission; it stays below the
// passing grade until the teacher grades the lab in the sheet.
const ungradedMark = "0"

// labsFlow accepts a lab report upload and records the submission.
func labsFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "labs",
		Entry: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/labs"},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				if username(c) == "" {
					_ = helpers.SendText(c, msgNoUsername)
					return flow.Stay(), nil
				}
				registered, err := deps.Roster.IsRegistered(reqCtx(c), username(c))
				if err != nil {
					return storageFail(c, err)
				}
				if !registered {
					_ = helpers.SendText(c, "Сначала пройдите регистрацию через /reg.")
					return flow.Stay(), nil
				}
				err = helpers.SendMD(c, "Прикрепите файл отчёта (.pdf, .doc, .docx или .zip):",
					keyboard.SingleCancelMarkup(cancelKey))
				if err != nil {
					return flow.Stay(), err
				}
				return flow.Move(stateAwaitFile), nil
			},
		}},
		Rules: []flow.Rule{
			{
				Trigger: flow.Trigger{Kind: flow.TriggerDocument},
				States:  []state.ID{stateAwaitFile},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					ext := flow.DocumentEvent(c).Value
					if !allowedReportExts[ext] {
						_ = helpers.SendText(c, "Такой формат не подойдёт. Нужен .pdf, .doc, .docx или .zip.")
						return flow.Stay(), nil
					}
					if err := deps.Works.RecordSubmission(reqCtx(c), username(c), ungradedMark); err != nil {
						return storageFail(c, err)
					}
					_ = helpers.SendText(c, "Отчёт принят! Оценка появится после проверки.")
					return flow.End(flow.ResultCompleted), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerText},
				States:  []state.ID{stateAwaitFile},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					_ = helpers.SendText(c, "Мне нужен файл, а не текст. Прикрепите документ с отчётом.")
					return flow.Stay(), nil
				},
			},
		},
		Commands: map[string]commands.Command{
			"/labs": {Description: "Сдать лабораторную"},
		},
	}
}

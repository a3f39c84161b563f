package flows

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/core/buildinfo"
	"github.com/m3rciful/studbot/core/telegram/commands"
	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/helpers"
	"github.com/m3rciful/studbot/core/telegram/state"
)

const startText = "Привет! Я помогаю вести курс: регистрация через /reg, " +
	"сдача лабораторных через /labs, дедлайны через /deadline. " +
	"Свои данные можно посмотреть командой /info."

// basicFlow covers the one-shot commands that never hold a conversation.
func basicFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "basic",
		Entry: []flow.Rule{
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/start"},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					return flow.Stay(), helpers.SendText(c, startText)
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/info"},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					if username(c) == "" {
						_ = helpers.SendText(c, msgNoUsername)
						return flow.Stay(), nil
					}
					st, ok, err := deps.Roster.Find(reqCtx(c), username(c))
					if err != nil {
						return storageFail(c, err)
					}
					if !ok {
						_ = helpers.SendText(c, "Вы ещё не зарегистрированы. Начните с /reg.")
						return flow.Stay(), nil
					}
					_ = helpers.SendMD(c, formatStudent(st))
					return flow.Stay(), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/version"},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					text := fmt.Sprintf("studbot %s (%s)", buildinfo.Version, buildinfo.Commit)
					if buildinfo.Date != "" {
						text += " от " + buildinfo.Date
					}
					return flow.Stay(), helpers.SendText(c, text)
				},
			},
		},
		Commands: map[string]commands.Command{
			"/start":   {Description: "Начало работы"},
			"/info":    {Description: "Мои данные"},
			"/cancel":  {Description: "Отменить текущее действие"},
			"/version": {Description: "Версия бота", Hidden: true},
		},
	}
}

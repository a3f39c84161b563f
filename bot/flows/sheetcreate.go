package flows

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/studbot/bot/storage/rowstore"
	"github.com/m3rciful/studbot/core/telegram/commands"
	"github.com/m3rciful/studbot/core/telegram/flow"
	"github.com/m3rciful/studbot/core/telegram/helpers"
	"github.com/m3rciful/studbot/core/telegram/keyboard"
	"github.com/m3rciful/studbot/core/telegram/state"
)

const (
	stateTypeSheetName state.ID = "type_sheet_name"
	stateTypeColumns   state.ID = "type_columns"
	statePickMode      state.ID = "pick_mode"
)

const cbSheetMode = "sheet_mode"

const (
	sheetModePlain    = "plain"
	sheetModeKeyed    = "keyed"
	usernameColumnKey = "username"
)

// sheetCreateFlow builds a new sheet: name, then column list, then the
// mode buttons deciding whether a username key column is prepended.
func sheetCreateFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "sheetcreate",
		Entry: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/create_table"},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				if deps.Creator == nil {
					_ = helpers.SendText(c, "Создание таблиц недоступно для текущего хранилища.")
					return flow.Stay(), nil
				}
				err := helpers.SendMD(c, "Введите название новой таблицы:",
					keyboard.SingleCancelMarkup(cancelKey))
				if err != nil {
					return flow.Stay(), err
				}
				return flow.Move(stateTypeSheetName), nil
			},
		}},
		Rules: []flow.Rule{
			{
				Trigger: flow.Trigger{Kind: flow.TriggerText},
				States:  []state.ID{stateTypeSheetName},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					name := strings.TrimSpace(c.Text())
					if name == "" {
						_ = helpers.SendText(c, "Название не может быть пустым. Попробуйте ещё раз.")
						return flow.Stay(), nil
					}
					conv.Set("sheet", name)
					_ = helpers.SendText(c, "Перечислите столбцы через запятую:")
					return flow.Move(stateTypeColumns), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerText},
				States:  []state.ID{stateTypeColumns},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					columns := splitColumns(c.Text())
					if len(columns) == 0 {
						_ = helpers.SendText(c, "Нужен хотя бы один столбец. Попробуйте ещё раз.")
						return flow.Stay(), nil
					}
					conv.Set("columns", strings.Join(columns, ","))
					markup := keyboard.InlineButtonsRows(
						[]keyboard.InlineBtn{{Text: "Со столбцом username", Unique: cbSheetMode, Data: sheetModeKeyed}},
						[]keyboard.InlineBtn{{Text: "Как есть", Unique: cbSheetMode, Data: sheetModePlain}},
					)
					err := helpers.SendMD(c, "Как оформить таблицу?",
						keyboard.WithCancelRow(markup, cancelKey))
					if err != nil {
						return flow.Stay(), err
					}
					return flow.Move(statePickMode), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbSheetMode},
				States:  []state.ID{statePickMode},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					name, _ := conv.GetString("sheet")
					joined, _ := conv.GetString("columns")
					header := strings.Split(joined, ",")
					if callbackPayload(c) == sheetModeKeyed {
						header = append([]string{usernameColumnKey}, header...)
					}

					err := deps.Creator.CreateSheet(reqCtx(c), name, header)
					if errors.Is(err, rowstore.ErrSheetExists) {
						_ = helpers.SendText(c, "Таблица с таким названием уже есть. Введите другое название:")
						return flow.Move(stateTypeSheetName), nil
					}
					if err != nil {
						return storageFail(c, err)
					}
					_ = helpers.SendMD(c, fmt.Sprintf("Таблица *%s* создана, столбцы: %s.",
						escapeMD(name), strings.Join(header, ", ")))
					return flow.End(flow.ResultCompleted), nil
				},
			},
		},
		Commands: map[string]commands.Command{
			"/create_table": {Description: "Создать новую таблицу", AdminOnly: true},
		},
	}
}

func splitColumns(text string) []string {
	parts := strings.Split(text, ",")
	columns := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			columns = append(columns, p)
		}
	}
	return columns
}

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

// Registration steps.
const (
	stateSelectAction    state.ID = "select_action"
	stateSelectAttribute state.ID = "select_attribute"
	stateTypeValue       state.ID = "type_value"
)

// resultBack returns a child flow to the parent menu without finishing
// the whole conversation.
const resultBack flow.Result = "back"

// Registration callback keys.
const (
	cbRegAdd     = "reg_add"
	cbRegShow    = "reg_show"
	cbRegAttr    = "reg_attr"
	cbRegConfirm = "reg_confirm"
	cbRegBack    = "reg_back"
)

// Attribute identifiers used as scratch-data keys in the describe child.
const (
	attrName     = "name"
	attrGroup    = "group"
	attrSubgroup = "subgroup"
)

var attrLabels = map[string]string{
	attrName:     "ФИО",
	attrGroup:    "Группа",
	attrSubgroup: "Подгруппа",
}

var reasonMessages = map[roster.Reason]string{
	roster.ReasonMissingName:     "Вы не указали ФИО. Заполните его и подтвердите ещё раз.",
	roster.ReasonMissingGroup:    "Вы не указали группу. Заполните её и подтвердите ещё раз.",
	roster.ReasonMissingSubgroup: "Вы не указали подгруппу. Заполните её и подтвердите ещё раз.",
	roster.ReasonBadName:         "ФИО должно состоять из 3 или 4 слов без цифр и знаков. Исправьте его и подтвердите ещё раз.",
}

func registrationFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "registration",
		Entry: []flow.Rule{{
			Trigger: flow.Trigger{Kind: flow.TriggerCommand, Value: "/reg"},
			Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
				if username(c) == "" {
					_ = helpers.SendText(c, msgNoUsername)
					return flow.Stay(), nil
				}
				if err := sendActionMenu(c); err != nil {
					return flow.Stay(), err
				}
				return flow.Move(stateSelectAction), nil
			},
		}},
		Rules: []flow.Rule{
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbRegAdd},
				States:  []state.ID{stateSelectAction},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					if err := sendAttributeMenu(c, nil); err != nil {
						return flow.Stay(), err
					}
					return flow.Child("describe", stateSelectAttribute), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbRegShow},
				States:  []state.ID{stateSelectAction},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					st, ok, err := deps.Roster.Find(reqCtx(c), username(c))
					if err != nil {
						return storageFail(c, err)
					}
					if !ok {
						_ = helpers.SendText(c, "Вы ещё не зарегистрированы. Нажмите «Заполнить данные».")
						return flow.Stay(), nil
					}
					_ = helpers.SendMD(c, formatStudent(st))
					return flow.Stay(), nil
				},
			},
		},
		Children:      []*flow.Flow{describeFlow(deps)},
		ChildOutcomes: map[flow.Result]state.ID{resultBack: stateSelectAction},
		Commands: map[string]commands.Command{
			"/reg": {Description: "Регистрация студента"},
		},
	}
}

// describeFlow collects the attribute bag: the user alternates between
// picking an attribute and typing its value until they confirm, then the
// whole bag is validated at once.
func describeFlow(deps Deps) *flow.Flow {
	return &flow.Flow{
		Name: "describe",
		Rules: []flow.Rule{
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbRegAttr},
				States:  []state.ID{stateSelectAttribute},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					attr := callbackPayload(c)
					label, ok := attrLabels[attr]
					if !ok {
						return flow.Stay(), nil
					}
					conv.Set("attr", attr)
					_ = helpers.SendText(c, fmt.Sprintf("Введите значение поля «%s».", label))
					return flow.Move(stateTypeValue), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerText},
				States:  []state.ID{stateTypeValue},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					attr, _ := conv.GetString("attr")
					conv.Set(attr, c.Text())
					conv.Delete("attr")
					if err := sendAttributeMenu(c, conv); err != nil {
						return flow.Stay(), err
					}
					return flow.Move(stateSelectAttribute), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbRegConfirm},
				States:  []state.ID{stateSelectAttribute},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					st := studentFromBag(c, conv)
					reason, err := deps.Roster.Register(reqCtx(c), st)
					if err != nil {
						return storageFail(c, err)
					}
					if reason != roster.ReasonOK {
						_ = helpers.SendText(c, reasonMessages[reason])
						if err := sendAttributeMenu(c, conv); err != nil {
							return flow.Stay(), err
						}
						return flow.Stay(), nil
					}
					_ = helpers.SendMD(c, "Готово! "+formatStudent(st))
					return flow.End(flow.ResultCompleted), nil
				},
			},
			{
				Trigger: flow.Trigger{Kind: flow.TriggerCallback, Value: cbRegBack},
				States:  []state.ID{stateSelectAttribute},
				Handle: func(c tele.Context, conv *state.Conversation) (flow.Outcome, error) {
					if err := sendActionMenu(c); err != nil {
						return flow.Stay(), err
					}
					return flow.End(resultBack), nil
				},
			},
		},
	}
}

func sendActionMenu(c tele.Context) error {
	markup := keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{{Text: "📝 Заполнить данные", Unique: cbRegAdd}},
		[]keyboard.InlineBtn{{Text: "👀 Показать данные", Unique: cbRegShow}},
	)
	return helpers.EditOrSendMD(c, "Что будем делать?", keyboard.WithCancelRow(markup, cancelKey))
}

func sendAttributeMenu(c tele.Context, conv *state.Conversation) error {
	buttons := make([]keyboard.InlineBtn, 0, len(attrLabels))
	for _, attr := range []string{attrName, attrGroup, attrSubgroup} {
		label := attrLabels[attr]
		if conv != nil {
			if v, ok := conv.GetString(attr); ok && v != "" {
				label += " ✓"
			}
		}
		buttons = append(buttons, keyboard.InlineBtn{Text: label, Unique: cbRegAttr, Data: attr})
	}
	markup := keyboard.InlineButtonsNPerRow(buttons, 2)
	markup.InlineKeyboard = append(markup.InlineKeyboard,
		keyboard.InlineButtonsRows([]keyboard.InlineBtn{
			{Text: "✅ Подтвердить", Unique: cbRegConfirm},
			{Text: "⬅️ Назад", Unique: cbRegBack},
		}).InlineKeyboard...)
	return helpers.EditOrSendMD(c, "Выберите поле для заполнения:", keyboard.WithCancelRow(markup, cancelKey))
}

func studentFromBag(c tele.Context, conv *state.Conversation) roster.Student {
	name, _ := conv.GetString(attrName)
	group, _ := conv.GetString(attrGroup)
	subgroup, _ := conv.GetString(attrSubgroup)
	return roster.Student{
		Username: username(c),
		FullName: name,
		Group:    group,
		Subgroup: subgroup,
	}
}

func formatStudent(st roster.Student) string {
	text := fmt.Sprintf("*ФИО:* %s\n*Группа:* %s\n*Подгруппа:* %s",
		escapeMD(st.FullName), escapeMD(st.Group), escapeMD(st.Subgroup))
	if st.Admission != "" {
		text += fmt.Sprintf("\n*Допуск:* %s", escapeMD(st.Admission))
	}
	return text
}

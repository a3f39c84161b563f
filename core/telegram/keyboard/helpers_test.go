package keyboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNamedChoicesLayout(t *testing.T) {
	markup := NamedChoices("deadline_pick", []string{"Математика", "Физика", "История"}, 2)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 2)
	require.Len(t, markup.InlineKeyboard[1], 1)

	// telebot carries the key in Unique and joins it with Data at marshal
	// time, so the raw button holds only the payload.
	first := markup.InlineKeyboard[0][0]
	require.Equal(t, "Математика", first.Text)
	require.Equal(t, "deadline_pick", first.Unique)
	require.Equal(t, "Математика", first.Data)
}

func TestNamedChoicesOnePerRow(t *testing.T) {
	markup := NamedChoices("pick", []string{"a", "b"}, 1)
	require.Len(t, markup.InlineKeyboard, 2)
}

func TestWithCancelRow(t *testing.T) {
	markup := NamedChoices("pick", []string{"a"}, 1)
	markup = WithCancelRow(markup, "reg_cancel")
	require.Len(t, markup.InlineKeyboard, 2)
	last := markup.InlineKeyboard[1][0]
	require.Equal(t, "❌ Отмена", last.Text)
}

func TestWithCancelRowNilMarkup(t *testing.T) {
	markup := WithCancelRow(nil, "reg_cancel")
	require.Len(t, markup.InlineKeyboard, 1)
}

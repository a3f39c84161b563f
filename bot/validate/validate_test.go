package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFullName(t *testing.T) {
	valid := []string{
		"Иванов Иван Иванович",
		"Петрова Анна Сергеевна Мария",
		"Smith John Adam",
	}
	for _, name := range valid {
		require.True(t, FullName(name), "expected valid: %q", name)
	}

	invalid := []string{
		"",
		"Иванов Иван",
		"Иванов Иван Иванович Пятое Слово",
		"Иванов123 Иван Иванович",
		"Иванов Иван Иванович!",
	}
	for _, name := range invalid {
		require.False(t, FullName(name), "expected invalid: %q", name)
	}
}

func TestSpreadsheetID(t *testing.T) {
	const id = "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms"

	got, ok := SpreadsheetID("https://docs.google.com/spreadsheets/d/" + id + "/edit#gid=0")
	require.True(t, ok)
	require.Equal(t, id, got)

	got, ok = SpreadsheetID(id)
	require.True(t, ok)
	require.Equal(t, id, got)

	_, ok = SpreadsheetID("https://docs.google.com/spreadsheets/d/short/edit")
	require.False(t, ok)

	_, ok = SpreadsheetID("not a link")
	require.False(t, ok)
}

func TestJSONFile(t *testing.T) {
	require.True(t, JSONFile("token.json"))
	require.True(t, JSONFile("creds/Token.JSON"))
	require.False(t, JSONFile("token.yaml"))
	require.False(t, JSONFile(""))
}

func TestMinutesRu(t *testing.T) {
	cases := map[int]string{
		1:  "минута",
		2:  "минуты",
		4:  "минуты",
		5:  "минут",
		10: "минут",
		11: "минут",
		12: "минут",
		14: "минут",
		21: "минута",
		22: "минуты",
		25: "минут",
		0:  "минут",
	}
	for n, want := range cases {
		require.Equal(t, want, MinutesRu(n), "n=%d", n)
	}
}

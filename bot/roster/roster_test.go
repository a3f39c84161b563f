package roster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/studbot/bot/storage/rowstore"
)

func newService(t *testing.T) (*Service, *rowstore.Memory) {
	t.Helper()
	store := rowstore.NewMemoryWithSheets(Sheet)
	return New(store), store
}

func TestRegisterStoresCompleteRecord(t *testing.T) {
	svc, store := newService(t)

	reason, err := svc.Register(context.Background(), Student{
		Username: "ivanov",
		FullName: "Иванов Иван Иванович",
		Group:    "ИУ7-34Б",
		Subgroup: "1",
	})
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)

	rows, err := store.ListRows(context.Background(), Sheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, rowstore.Row{"ivanov", "Иванов Иван Иванович", "ИУ7-34Б", "1", ""}, rows[0])
}

func TestRegisterRejectsIncompleteRecord(t *testing.T) {
	cases := []struct {
		name    string
		student Student
		want    Reason
	}{
		{"missing name", Student{Username: "u", Group: "g", Subgroup: "1"}, ReasonMissingName},
		{"missing group", Student{Username: "u", FullName: "Иванов Иван Иванович", Subgroup: "1"}, ReasonMissingGroup},
		{"missing subgroup", Student{Username: "u", FullName: "Иванов Иван Иванович", Group: "g"}, ReasonMissingSubgroup},
		{"bad name", Student{Username: "u", FullName: "Иванов123 Иван", Group: "g", Subgroup: "1"}, ReasonBadName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newService(t)
			reason, err := svc.Register(context.Background(), tc.student)
			require.NoError(t, err)
			require.Equal(t, tc.want, reason)

			keys, err := store.ListKeys(context.Background(), Sheet)
			require.NoError(t, err)
			require.Empty(t, keys, "no row may be written on validation failure")
		})
	}
}

func TestRegisterTwiceKeepsSingleRow(t *testing.T) {
	svc, store := newService(t)
	st := Student{Username: "ivanov", FullName: "Иванов Иван Иванович", Group: "ИУ7-34Б", Subgroup: "1"}

	for i := 0; i < 2; i++ {
		reason, err := svc.Register(context.Background(), st)
		require.NoError(t, err)
		require.Equal(t, ReasonOK, reason)
	}

	keys, err := store.ListKeys(context.Background(), Sheet)
	require.NoError(t, err)
	require.Equal(t, []string{"ivanov"}, keys)
}

func TestFindReportsPresence(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), Student{
		Username: "ivanov", FullName: "Иванов Иван Иванович", Group: "ИУ7-34Б", Subgroup: "1",
	})
	require.NoError(t, err)

	st, ok, err := svc.Find(context.Background(), "ivanov")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Иванов Иван Иванович", st.FullName)

	_, ok, err = svc.Find(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSetName(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), Student{
		Username: "ivanov", FullName: "Иванов Иван Иванович", Group: "ИУ7-34Б", Subgroup: "1",
	})
	require.NoError(t, err)

	reason, err := svc.SetName(context.Background(), "ivanov", "Петров Пётр Петрович")
	require.NoError(t, err)
	require.Equal(t, ReasonOK, reason)

	st, ok, err := svc.Find(context.Background(), "ivanov")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "Петров Пётр Петрович", st.FullName)
	require.Equal(t, "ИУ7-34Б", st.Group, "other fields stay intact")

	reason, err = svc.SetName(context.Background(), "ivanov", "Bad123 Name Here")
	require.NoError(t, err)
	require.Equal(t, ReasonBadName, reason)
}

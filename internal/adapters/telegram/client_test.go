package telegram

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkarpenko/slotbot/pkg/domain"
)

func TestParseUpdate_Callback(t *testing.T) {
	var u Update
	raw := `{
		"update_id": 1,
		"callback_query": {
			"id": "cb-1",
			"data": "slot_wh_id:15",
			"message": {"message_id": 42, "chat": {"id": 100500}}
		}
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &u))

	userID, ev, callbackID, ok := ParseUpdate(u)
	require.True(t, ok)
	assert.Equal(t, "100500", userID)
	assert.Equal(t, domain.EventCallback, ev.Kind)
	assert.Equal(t, "slot_wh_id:15", ev.Data)
	assert.Equal(t, "42", ev.MessageID)
	assert.Equal(t, "cb-1", callbackID)
}

func TestParseUpdate_Text(t *testing.T) {
	var u Update
	raw := `{
		"update_id": 2,
		"message": {"message_id": 7, "text": "/start", "chat": {"id": -12}}
	}`
	require.NoError(t, json.Unmarshal([]byte(raw), &u))

	userID, ev, callbackID, ok := ParseUpdate(u)
	require.True(t, ok)
	assert.Equal(t, "-12", userID)
	assert.Equal(t, domain.EventText, ev.Kind)
	assert.Equal(t, "/start", ev.Text)
	assert.Empty(t, callbackID)
}

func TestParseUpdate_Unusable(t *testing.T) {
	_, _, _, ok := ParseUpdate(Update{UpdateID: 3})
	assert.False(t, ok)

	// A message without text (sticker, photo) is skipped too.
	var u Update
	require.NoError(t, json.Unmarshal([]byte(`{"message": {"message_id": 1, "chat": {"id": 5}}}`), &u))
	_, _, _, ok = ParseUpdate(u)
	assert.False(t, ok)
}

func TestMarkup(t *testing.T) {
	assert.Nil(t, markup(domain.Keyboard{}))

	kb := domain.Keyboard{}.
		Row(domain.Button{Text: "A", Callback: "ns:a"}, domain.Button{Text: "B", Callback: "ns:b"}).
		Row(domain.Button{Text: "C", Callback: "ns:c"})

	m := markup(kb)
	require.NotNil(t, m)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Equal(t, "ns:a", m.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "C", m.InlineKeyboard[1][0].Text)
}

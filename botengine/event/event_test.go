package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		tag  string
		want Kind
	}{
		{"messages.upsert", KindMessageUpsert},
		{"MESSAGES_UPSERT", KindMessageUpsert},
		{"messages.update", KindMessageUpdate},
		{"messages_update", KindMessageUpdate},
		{"call", KindCall},
		{"presence.update", KindPresenceUpdate},
		{"presence_update", KindPresenceUpdate},
		{"connection.update", KindUnknown},
		{"", KindUnknown},
	}
	for _, tt := range tests {
		env := &Envelope{Event: tt.tag}
		assert.Equal(t, tt.want, env.Classify(), "tag %q", tt.tag)
	}
}

func TestDecodeMessageShapes(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantText  string
		wantRowID string
	}{
		{
			name:     "plain conversation",
			data:     `{"key":{"id":"A1","remoteJid":"55@s.whatsapp.net"},"message":{"conversation":"Oi"}}`,
			wantText: "Oi",
		},
		{
			name:     "extended text",
			data:     `{"key":{"id":"A2","remoteJid":"55@s.whatsapp.net"},"message":{"extendedTextMessage":{"text":"hello there"}}}`,
			wantText: "hello there",
		},
		{
			name:     "button reply",
			data:     `{"key":{"id":"A3","remoteJid":"55@s.whatsapp.net"},"message":{"buttonsResponseMessage":{"selectedDisplayText":"See prices"}}}`,
			wantText: "See prices",
		},
		{
			name:      "list row selection",
			data:      `{"key":{"id":"A4","remoteJid":"55@s.whatsapp.net"},"message":{"listResponseMessage":{"title":"Street / Urban","singleSelectReply":{"selectedRowId":"mod_street"}}}}`,
			wantText:  "Street / Urban",
			wantRowID: "mod_street",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &Envelope{Event: "messages.upsert", Data: json.RawMessage(tt.data)}
			msg, err := env.DecodeMessage()
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, msg.Text())
			assert.Equal(t, tt.wantRowID, msg.RowID())
		})
	}
}

func TestNormalizedInputPrefersRowID(t *testing.T) {
	msg := &Message{Message: &MessageContent{
		ListResponse: &ListResponse{
			Title:             "Street / Urban",
			SingleSelectReply: &SingleSelectReply{SelectedRowID: "MOD_Street"},
		},
	}}
	assert.Equal(t, "mod_street", msg.NormalizedInput())

	msg = &Message{Message: &MessageContent{Conversation: "  Bom Dia  "}}
	assert.Equal(t, "bom dia", msg.NormalizedInput())
}

func TestHasAudio(t *testing.T) {
	env := &Envelope{Data: json.RawMessage(`{"key":{"id":"A5"},"message":{"audioMessage":{"seconds":12}}}`)}
	msg, err := env.DecodeMessage()
	require.NoError(t, err)
	assert.True(t, msg.HasAudio())
	assert.Equal(t, "", msg.Text())
}

func TestDecodeStatusUpdate(t *testing.T) {
	env := &Envelope{Data: json.RawMessage(`{"key":{"id":"B1","remoteJid":"55@s.whatsapp.net"},"status":"READ"}`)}
	u, err := env.DecodeStatusUpdate()
	require.NoError(t, err)
	assert.Equal(t, "READ", u.Status)
	assert.Equal(t, "B1", u.Key.ID)
}

func TestCallCaller(t *testing.T) {
	c := &Call{ID: "55@s.whatsapp.net"}
	assert.Equal(t, "55@s.whatsapp.net", c.Caller())
	c = &Call{From: "44@s.whatsapp.net"}
	assert.Equal(t, "44@s.whatsapp.net", c.Caller())
}

func TestIsGroup(t *testing.T) {
	assert.True(t, IsGroup("1203630@g.us"))
	assert.False(t, IsGroup("5547999@s.whatsapp.net"))
}

func TestSmartName(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"Jonathan Silva", "Jonathan"},
		{"jonathan", "Jonathan"},
		{"🔥 Duda 🔥", ""},     // first token is pure symbols
		{"Jo", "Jo"},
		{"J", ""},                 // too short after cleaning
		{"xXsuperlongnicknameXx", ""}, // too long
		{"", ""},
		{"maria clara", "Maria"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SmartName(tt.raw), "raw %q", tt.raw)
	}
}

func TestHasMenuPrefix(t *testing.T) {
	assert.True(t, HasMenuPrefix("menu_prices"))
	assert.True(t, HasMenuPrefix("mod_street"))
	assert.True(t, HasMenuPrefix("goal_fitness"))
	assert.True(t, HasMenuPrefix("final_booking"))
	assert.False(t, HasMenuPrefix("prices"))
}

func TestIsDigitOption(t *testing.T) {
	assert.True(t, IsDigitOption("1"))
	assert.True(t, IsDigitOption("6"))
	assert.False(t, IsDigitOption("0"))
	assert.False(t, IsDigitOption("7"))
	assert.False(t, IsDigitOption("12"))
}

package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateClassification(t *testing.T) {
	assert.True(t, StateAskName.IsQuiz())
	assert.True(t, StateAskGoal.IsQuiz())
	assert.False(t, StateMenuMain.IsQuiz())

	assert.True(t, StateMenuMain.IsMenu())
	assert.True(t, StateViewModalityDetails.IsMenu())
	assert.False(t, StateAskAge.IsMenu())

	assert.True(t, StateHumanIntervention.IsMuted())
	assert.True(t, StateWaitingForHuman.IsMuted())
	assert.False(t, StateNone.IsMuted())

	assert.True(t, StateSelectModality.IsHighIntent())
	assert.True(t, StateViewModalityDetails.IsHighIntent())
	assert.False(t, StateMenuMain.IsHighIntent())
}

func TestBracketForAge(t *testing.T) {
	tests := []struct {
		age  int
		want AgeBracket
	}{
		{3, BracketKids},
		{11, BracketKids},
		{12, BracketTeen},
		{15, BracketTeen},
		{16, BracketAdult},
		{25, BracketAdult},
		{70, BracketAdult},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BracketForAge(tt.age), "age %d", tt.age)
	}
}

func TestRecordDataAccessors(t *testing.T) {
	rec := &Record{
		Conversation: "5547999@s.whatsapp.net",
		State:        StateAskAge,
		Data: map[string]any{
			DataName:      "Jonathan",
			DataAge:       float64(25), // JSON round-trip shape
			DataTimestamp: float64(1700000000000),
		},
	}

	assert.Equal(t, "Jonathan", rec.StringData(DataName))
	assert.Equal(t, "", rec.StringData(DataGoal))
	assert.Equal(t, 25, rec.IntData(DataAge))
	assert.Equal(t, time.UnixMilli(1700000000000), rec.MuteAnchor())
}

func TestRecordNilSafety(t *testing.T) {
	var rec *Record
	assert.Equal(t, "", rec.StringData(DataName))
	assert.Equal(t, 0, rec.IntData(DataAge))
	assert.True(t, rec.MuteAnchor().IsZero())
}

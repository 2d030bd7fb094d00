// Package flow defines the conversation flow state machine.
//
// A conversation is either stateless (no stored record) or sits in exactly
// one named state with an accumulated data payload. Handlers advance the
// state; unrecognized input never produces an error state, it simply falls
// through to the generic handler chain.
package flow

import (
	"time"
)

// State is the named step of a conversation's state machine.
type State string

const (
	// StateNone is the implicit state of a conversation with no stored record.
	StateNone State = ""
	// StateMenuMain indicates the main menu was presented.
	StateMenuMain State = "MENU_MAIN"
	// StateAskName indicates the quiz is waiting for the lead's name.
	StateAskName State = "ASK_NAME"
	// StateAskAge indicates the quiz is waiting for an age.
	StateAskAge State = "ASK_AGE"
	// StateAskExperience indicates the quiz is waiting for an experience level.
	StateAskExperience State = "ASK_EXPERIENCE"
	// StateAskGoal indicates the quiz is waiting for a training goal.
	StateAskGoal State = "ASK_GOAL"
	// StateSelectModality indicates the schedule list was presented.
	StateSelectModality State = "SELECT_MODALITY"
	// StateViewModalityDetails indicates a single modality's schedule was presented.
	StateViewModalityDetails State = "VIEW_MODALITY_DETAILS"
	// StateWaitingForHuman indicates the lead asked for a human operator.
	StateWaitingForHuman State = "WAITING_FOR_HUMAN"
	// StateHumanIntervention indicates an operator took over the conversation.
	StateHumanIntervention State = "HUMAN_INTERVENTION"
)

// IsQuiz returns true for the states handled by the quiz continuation.
func (s State) IsQuiz() bool {
	switch s {
	case StateAskName, StateAskAge, StateAskExperience, StateAskGoal:
		return true
	}
	return false
}

// IsMenu returns true for the states handled by the menu continuation.
func (s State) IsMenu() bool {
	switch s {
	case StateMenuMain, StateSelectModality, StateViewModalityDetails:
		return true
	}
	return false
}

// IsMuted returns true for the states that gate automation behind a mute window.
func (s State) IsMuted() bool {
	return s == StateHumanIntervention || s == StateWaitingForHuman
}

// IsHighIntent returns true for the states whose read receipts are worth an
// operator notification.
func (s State) IsHighIntent() bool {
	return s == StateSelectModality || s == StateViewModalityDetails
}

// Data keys accumulated across quiz steps. The payload is forward-appended:
// each step adds its own key and never rewrites keys owned by earlier steps.
const (
	DataName           = "name"
	DataAge            = "age"
	DataGoal           = "goal"
	DataExperience     = "experience"
	DataBracket        = "bracket"
	DataViewing        = "viewing"
	DataRecommendation = "recommendation"
	// DataTimestamp anchors the mute window, in Unix milliseconds.
	DataTimestamp = "timestamp"
)

// Record is one conversation's persisted flow state.
type Record struct {
	Conversation string         `json:"conversation"`
	State        State          `json:"state"`
	Data         map[string]any `json:"data"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// StringData returns a string payload field, or "" when absent.
func (r *Record) StringData(key string) string {
	if r == nil || r.Data == nil {
		return ""
	}
	v, _ := r.Data[key].(string)
	return v
}

// IntData returns an integer payload field, tolerating the float64 shape
// produced by JSON round-trips. Returns 0 when absent.
func (r *Record) IntData(key string) int {
	if r == nil || r.Data == nil {
		return 0
	}
	switch v := r.Data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Int64Data returns an int64 payload field. Returns 0 when absent.
func (r *Record) Int64Data(key string) int64 {
	if r == nil || r.Data == nil {
		return 0
	}
	switch v := r.Data[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// MuteAnchor returns the time that anchors the mute window, or the zero time
// when the record carries no anchor.
func (r *Record) MuteAnchor() time.Time {
	ms := r.Int64Data(DataTimestamp)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// AgeBracket buckets an age into the three audiences the quiz branches on.
type AgeBracket string

const (
	BracketKids  AgeBracket = "kids"
	BracketTeen  AgeBracket = "teen"
	BracketAdult AgeBracket = "adult"
)

// BracketForAge maps an age to its bracket: kids through 11, teens 12-15,
// adults from 16 up.
func BracketForAge(age int) AgeBracket {
	switch {
	case age <= 11:
		return BracketKids
	case age < 16:
		return BracketTeen
	}
	return BracketAdult
}

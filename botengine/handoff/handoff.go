// Package handoff manages the human-intervention mute window.
//
// Any operator-authored message (other than the reserved control commands)
// arms a fixed window during which the router stays silent for that
// conversation. On expiry the flow state is cleared entirely, so the
// conversation restarts fresh instead of resuming a stale quiz.
package handoff

import (
	"context"
	"time"

	"github.com/studiobotics/attendant/botengine/flow"
	"github.com/studiobotics/attendant/botengine/store"
)

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Monitor arms and checks mute windows over the flow state store.
type Monitor struct {
	flow   store.FlowStateStore
	window time.Duration
	logger Logger
}

func NewMonitor(flowStore store.FlowStateStore, window time.Duration, logger Logger) *Monitor {
	return &Monitor{flow: flowStore, window: window, logger: logger}
}

// Window returns the configured mute duration.
func (m *Monitor) Window() time.Duration { return m.window }

// Arm starts a mute window for the conversation anchored at now.
func (m *Monitor) Arm(ctx context.Context, conversation string, now time.Time) error {
	return m.flow.Set(ctx, conversation, flow.StateHumanIntervention, map[string]any{
		flow.DataTimestamp: now.UnixMilli(),
	})
}

// Disarm clears the conversation state, resuming automation immediately.
func (m *Monitor) Disarm(ctx context.Context, conversation string) error {
	return m.flow.Delete(ctx, conversation)
}

// Active reports whether rec holds a live mute window at now. A window that
// has run out is cleared from the store as a side effect, and the caller
// should treat the conversation as stateless afterwards.
func (m *Monitor) Active(ctx context.Context, rec *flow.Record, now time.Time) bool {
	if rec == nil || !rec.State.IsMuted() {
		return false
	}
	anchor := rec.MuteAnchor()
	if !anchor.IsZero() && now.Sub(anchor) < m.window {
		m.logger.Debug("conversation_muted", "conversation", rec.Conversation,
			"remaining", m.window-now.Sub(anchor))
		return true
	}
	if err := m.flow.Delete(ctx, rec.Conversation); err != nil {
		m.logger.Warn("mute_expiry_clear_failed", "conversation", rec.Conversation, "error", err)
	} else {
		m.logger.Info("mute_window_expired", "conversation", rec.Conversation)
	}
	return false
}

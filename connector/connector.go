// Package connector talks to the messaging provider and adjacent systems:
// outbound sends, operator notifications and CRM labeling.
//
// The orchestration core only sees the interfaces here; the HTTP clients are
// wired in by the binary. Every send is best-effort from the router's point
// of view: a failed delivery is logged, never propagated into routing state.
package connector

import (
	"context"
	"fmt"

	"github.com/studiobotics/attendant/botengine/config"
)

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Presence mirrors the provider's chat presence states.
type Presence string

const (
	PresenceComposing Presence = "composing"
	PresenceRecording Presence = "recording"
	PresencePaused    Presence = "paused"
)

// MessageRef identifies a provider message for reactions.
type MessageRef struct {
	ID        string `json:"id"`
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
}

// Messenger sends outbound messages to one conversation.
type Messenger interface {
	SendText(ctx context.Context, to, text string) error
	SendList(ctx context.Context, to string, list config.ListMessage) error
	SendLocation(ctx context.Context, to string, loc config.Location) error
	SendReaction(ctx context.Context, to string, ref MessageRef, emoji string) error
	SetPresence(ctx context.Context, to string, presence Presence) error
}

// Labeler tags a CRM conversation. Implementations must tolerate missing
// credentials by becoming a no-op.
type Labeler interface {
	AddLabel(ctx context.Context, conversation, label string) error
}

// HTTPStatusError captures non-2xx provider responses with status-aware
// context, so callers can branch on throttling versus outage.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("connector: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

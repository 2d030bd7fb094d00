// Package store defines the persistence contracts of the orchestrator and
// their Postgres and in-memory implementations.
//
// Every store is deliberately narrow: the orchestration core treats
// persistence as a key-value/relational capability behind these interfaces
// and degrades to a stateless best-effort mode when a store fails. Reads
// that fail should be treated by callers as "nothing found"; writes are
// attempted once and logged by the caller on failure.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/studiobotics/attendant/botengine/flow"
)

var (
	// ErrNotFound signals an absent row; callers treat it as "no state".
	ErrNotFound = errors.New("not found")
	// ErrUnavailable signals the backing store cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// Role tags a conversation memory turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one remembered conversation exchange.
type Turn struct {
	Role      Role
	Text      string
	CreatedAt time.Time
}

// Profile is the long-lived lead profile. It survives flow-state resets.
// Zero-valued fields mean "unknown" and never overwrite known values.
type Profile struct {
	Name               string
	Age                int
	Goal               string
	Experience         string
	LastRecommendation string
	UpdatedAt          time.Time
}

// LearnedAnswer is an operator-authored reply captured for future context.
type LearnedAnswer struct {
	Question  string
	Answer    string
	CreatedAt time.Time
}

// FollowUp is a scheduled reminder for a lead that went quiet.
type FollowUp struct {
	ID           string
	Conversation string
	Stage        string
	ScheduledAt  time.Time
}

// FlowStateStore persists the per-conversation state machine position.
// Set has upsert semantics: it replaces state, data and timestamp.
type FlowStateStore interface {
	Get(ctx context.Context, conversation string) (*flow.Record, error)
	Set(ctx context.Context, conversation string, state flow.State, data map[string]any) error
	Delete(ctx context.Context, conversation string) error
}

// MemoryStore persists the rolling conversation history. Append is
// append-only; Recent returns at most limit turns in creation order; entries
// beyond the retention window are pruned lazily by the implementation.
type MemoryStore interface {
	Append(ctx context.Context, conversation string, role Role, text string) error
	Recent(ctx context.Context, conversation string, limit int) ([]Turn, error)
	Clear(ctx context.Context, conversation string) error
}

// ProfileStore persists lead profiles. Upsert merges non-zero incoming
// fields into the stored profile.
type ProfileStore interface {
	Get(ctx context.Context, conversation string) (*Profile, error)
	Upsert(ctx context.Context, conversation string, p Profile) error
}

// LearnedStore persists operator-curated question/answer pairs.
type LearnedStore interface {
	Save(ctx context.Context, question, answer string) error
	Recent(ctx context.Context, limit int) ([]LearnedAnswer, error)
}

// FollowUpStore persists staged reminders.
type FollowUpStore interface {
	Schedule(ctx context.Context, f FollowUp) error
	// CancelPending cancels every unsent reminder for a conversation and
	// returns how many were cancelled.
	CancelPending(ctx context.Context, conversation string) (int, error)
	// Due returns up to limit reminders scheduled at or before now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]FollowUp, error)
	MarkSent(ctx context.Context, id string) error
	MarkCancelled(ctx context.Context, id string) error
}

// FunnelStore records funnel analytics events, best-effort.
type FunnelStore interface {
	Track(ctx context.Context, conversation, event string, metadata map[string]any) error
	HasEvent(ctx context.Context, conversation, event string) (bool, error)
}

// Stores bundles every persistence capability the orchestrator consumes.
type Stores struct {
	Flow     FlowStateStore
	Memory   MemoryStore
	Profiles ProfileStore
	Learned  LearnedStore
	FollowUp FollowUpStore
	Funnel   FunnelStore
}

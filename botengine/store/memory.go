package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studiobotics/attendant/botengine/flow"
)

// memoryRetention caps how many turns are kept per conversation before lazy
// pruning, mirroring the relational implementation.
const memoryRetention = 50

// NewInMemoryStores creates a process-local store bundle. Used by tests and
// by deployments that accept losing state on restart.
func NewInMemoryStores() Stores {
	return Stores{
		Flow:     NewInMemoryFlowStore(),
		Memory:   NewInMemoryMemoryStore(),
		Profiles: NewInMemoryProfileStore(),
		Learned:  NewInMemoryLearnedStore(),
		FollowUp: NewInMemoryFollowUpStore(),
		Funnel:   NewInMemoryFunnelStore(),
	}
}

func copyData(data map[string]any) map[string]any {
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	return cp
}

// =============================================================================
// FlowStateStore
// =============================================================================

// InMemoryFlowStore keeps flow records in a map.
type InMemoryFlowStore struct {
	mu   sync.RWMutex
	recs map[string]*flow.Record
	now  func() time.Time
}

func NewInMemoryFlowStore() *InMemoryFlowStore {
	return &InMemoryFlowStore{
		recs: make(map[string]*flow.Record),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source, for tests.
func (s *InMemoryFlowStore) SetClock(now func() time.Time) { s.now = now }

func (s *InMemoryFlowStore) Get(ctx context.Context, conversation string) (*flow.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[conversation]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	cp.Data = copyData(rec.Data)
	return &cp, nil
}

func (s *InMemoryFlowStore) Set(ctx context.Context, conversation string, state flow.State, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[conversation] = &flow.Record{
		Conversation: conversation,
		State:        state,
		Data:         copyData(data),
		UpdatedAt:    s.now(),
	}
	return nil
}

func (s *InMemoryFlowStore) Delete(ctx context.Context, conversation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, conversation)
	return nil
}

// =============================================================================
// MemoryStore
// =============================================================================

// InMemoryMemoryStore keeps the rolling conversation history in a map.
type InMemoryMemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]Turn
	now   func() time.Time
}

func NewInMemoryMemoryStore() *InMemoryMemoryStore {
	return &InMemoryMemoryStore{
		turns: make(map[string][]Turn),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryMemoryStore) Append(ctx context.Context, conversation string, role Role, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := append(s.turns[conversation], Turn{Role: role, Text: text, CreatedAt: s.now()})
	if len(turns) > memoryRetention {
		turns = turns[len(turns)-memoryRetention:]
	}
	s.turns[conversation] = turns
	return nil
}

func (s *InMemoryMemoryStore) Recent(ctx context.Context, conversation string, limit int) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[conversation]
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *InMemoryMemoryStore) Clear(ctx context.Context, conversation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, conversation)
	return nil
}

// =============================================================================
// ProfileStore
// =============================================================================

// InMemoryProfileStore keeps lead profiles in a map.
type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	now      func() time.Time
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{
		profiles: make(map[string]Profile),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryProfileStore) Get(ctx context.Context, conversation string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[conversation]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *InMemoryProfileStore) Upsert(ctx context.Context, conversation string, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := s.profiles[conversation]
	mergeProfile(&merged, p)
	merged.UpdatedAt = s.now()
	s.profiles[conversation] = merged
	return nil
}

// mergeProfile folds non-zero incoming fields into dst. Known values are
// never overwritten by unknowns.
func mergeProfile(dst *Profile, in Profile) {
	if in.Name != "" {
		dst.Name = in.Name
	}
	if in.Age != 0 {
		dst.Age = in.Age
	}
	if in.Goal != "" {
		dst.Goal = in.Goal
	}
	if in.Experience != "" {
		dst.Experience = in.Experience
	}
	if in.LastRecommendation != "" {
		dst.LastRecommendation = in.LastRecommendation
	}
}

// =============================================================================
// LearnedStore
// =============================================================================

// InMemoryLearnedStore keeps operator-curated answers in a slice.
type InMemoryLearnedStore struct {
	mu      sync.RWMutex
	learned []LearnedAnswer
	now     func() time.Time
}

func NewInMemoryLearnedStore() *InMemoryLearnedStore {
	return &InMemoryLearnedStore{now: func() time.Time { return time.Now().UTC() }}
}

func (s *InMemoryLearnedStore) Save(ctx context.Context, question, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.learned = append(s.learned, LearnedAnswer{Question: question, Answer: answer, CreatedAt: s.now()})
	return nil
}

func (s *InMemoryLearnedStore) Recent(ctx context.Context, limit int) ([]LearnedAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.learned
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	out := make([]LearnedAnswer, len(items))
	copy(out, items)
	return out, nil
}

// =============================================================================
// FollowUpStore
// =============================================================================

type followUpRow struct {
	FollowUp
	sent      bool
	cancelled bool
}

// InMemoryFollowUpStore keeps staged reminders in a map.
type InMemoryFollowUpStore struct {
	mu   sync.RWMutex
	rows map[string]*followUpRow
}

func NewInMemoryFollowUpStore() *InMemoryFollowUpStore {
	return &InMemoryFollowUpStore{rows: make(map[string]*followUpRow)}
}

func (s *InMemoryFollowUpStore) Schedule(ctx context.Context, f FollowUp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	s.rows[f.ID] = &followUpRow{FollowUp: f}
	return nil
}

func (s *InMemoryFollowUpStore) CancelPending(ctx context.Context, conversation string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.rows {
		if row.Conversation == conversation && !row.sent && !row.cancelled {
			row.cancelled = true
			n++
		}
	}
	return n, nil
}

func (s *InMemoryFollowUpStore) Due(ctx context.Context, now time.Time, limit int) ([]FollowUp, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []FollowUp
	for _, row := range s.rows {
		if !row.sent && !row.cancelled && !row.ScheduledAt.After(now) {
			due = append(due, row.FollowUp)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (s *InMemoryFollowUpStore) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[id]; ok {
		row.sent = true
	}
	return nil
}

func (s *InMemoryFollowUpStore) MarkCancelled(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[id]; ok {
		row.cancelled = true
	}
	return nil
}

// =============================================================================
// FunnelStore
// =============================================================================

// InMemoryFunnelStore keeps funnel events per conversation.
type InMemoryFunnelStore struct {
	mu     sync.RWMutex
	events map[string][]string
}

func NewInMemoryFunnelStore() *InMemoryFunnelStore {
	return &InMemoryFunnelStore{events: make(map[string][]string)}
}

func (s *InMemoryFunnelStore) Track(ctx context.Context, conversation, event string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[conversation] = append(s.events[conversation], event)
	return nil
}

func (s *InMemoryFunnelStore) HasEvent(ctx context.Context, conversation, event string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.events[conversation] {
		if e == event {
			return true, nil
		}
	}
	return false, nil
}

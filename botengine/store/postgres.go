package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/studiobotics/attendant/botengine/flow"
)

const (
	pgFlowTable     = "attendant_flow_state"
	pgMemoryTable   = "attendant_memory"
	pgProfileTable  = "attendant_profiles"
	pgLearnedTable  = "attendant_learned_answers"
	pgFollowUpTable = "attendant_follow_ups"
	pgFunnelTable   = "attendant_funnel_events"

	pgOperationTimeout = 5 * time.Second
)

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// PostgresStores is a single-connection-pool implementation of every store
// contract. Schema bootstrap happens lazily on first use so the process can
// start before the database accepts connections.
type PostgresStores struct {
	dsn    string
	openDB sqlOpenFunc

	initOnce sync.Once
	initErr  error
	db       *sql.DB
}

// NewPostgresStores validates the DSN and returns an unconnected handle.
func NewPostgresStores(dsn string) (*PostgresStores, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres: empty dsn")
	}
	return &PostgresStores{dsn: dsn, openDB: sql.Open}, nil
}

// Stores exposes the typed store views backed by this pool.
func (p *PostgresStores) Stores() Stores {
	return Stores{
		Flow:     &pgFlowStore{p},
		Memory:   &pgMemoryStore{p},
		Profiles: &pgProfileStore{p},
		Learned:  &pgLearnedStore{p},
		FollowUp: &pgFollowUpStore{p},
		Funnel:   &pgFunnelStore{p},
	}
}

func (p *PostgresStores) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

var pgSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + pgFlowTable + ` (
		conversation TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		data TEXT NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ` + pgMemoryTable + ` (
		id BIGSERIAL PRIMARY KEY,
		conversation TEXT NOT NULL,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS ` + pgMemoryTable + `_conversation_id_idx ON ` + pgMemoryTable + ` (conversation, id)`,
	`CREATE TABLE IF NOT EXISTS ` + pgProfileTable + ` (
		conversation TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		age INT NOT NULL DEFAULT 0,
		goal TEXT NOT NULL DEFAULT '',
		experience TEXT NOT NULL DEFAULT '',
		last_recommendation TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ` + pgLearnedTable + ` (
		id BIGSERIAL PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ` + pgFollowUpTable + ` (
		id TEXT PRIMARY KEY,
		conversation TEXT NOT NULL,
		stage TEXT NOT NULL,
		scheduled_at TIMESTAMPTZ NOT NULL,
		sent BOOLEAN NOT NULL DEFAULT FALSE,
		cancelled BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS ` + pgFollowUpTable + `_due_idx ON ` + pgFollowUpTable + ` (scheduled_at) WHERE NOT sent AND NOT cancelled`,
	`CREATE TABLE IF NOT EXISTS ` + pgFunnelTable + ` (
		id BIGSERIAL PRIMARY KEY,
		conversation TEXT NOT NULL,
		event TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS ` + pgFunnelTable + `_conversation_event_idx ON ` + pgFunnelTable + ` (conversation, event)`,
}

func (p *PostgresStores) ensureReady() error {
	p.initOnce.Do(func() {
		db, err := p.openDB("postgres", p.dsn)
		if err != nil {
			p.initErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), pgOperationTimeout)
		defer cancel()
		for _, stmt := range pgSchema {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				_ = db.Close()
				p.initErr = fmt.Errorf("%w: schema: %v", ErrUnavailable, err)
				return
			}
		}
		p.db = db
	})
	return p.initErr
}

func (p *PostgresStores) conn() (*sql.DB, error) {
	if err := p.ensureReady(); err != nil {
		return nil, err
	}
	return p.db, nil
}

func pgCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, pgOperationTimeout)
}

// =============================================================================
// FlowStateStore
// =============================================================================

type pgFlowStore struct{ p *PostgresStores }

func (s *pgFlowStore) Get(ctx context.Context, conversation string) (*flow.Record, error) {
	db, err := s.p.conn()
	if err != nil {
		return nil, err
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	var (
		state   string
		payload string
		rec     flow.Record
	)
	err = db.QueryRowContext(ctx,
		`SELECT state, data, updated_at FROM `+pgFlowTable+` WHERE conversation = $1`,
		conversation,
	).Scan(&state, &payload, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("flow get: %w", err)
	}
	rec.Conversation = conversation
	rec.State = flow.State(state)
	if err := json.Unmarshal([]byte(payload), &rec.Data); err != nil {
		return nil, fmt.Errorf("flow get: decode data: %w", err)
	}
	return &rec, nil
}

func (s *pgFlowStore) Set(ctx context.Context, conversation string, state flow.State, data map[string]any) error {
	db, err := s.p.conn()
	if err != nil {
		return err
	}
	if data == nil {
		data = map[string]any{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("flow set: encode data: %w", err)
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	_, err = db.ExecContext(ctx, `
		INSERT INTO `+pgFlowTable+` (conversation, state, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (conversation)
		DO UPDATE SET state = EXCLUDED.state, data = EXCLUDED.data, updated_at = NOW()`,
		conversation, string(state), string(payload))
	if err != nil {
		return fmt.Errorf("flow set: %w", err)
	}
	return nil
}

func (s *pgFlowStore) Delete(ctx context.Context, conversation string) error {
	db, err := s.p.conn()
	if err != nil {
		return err
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx, `DELETE FROM `+pgFlowTable+` WHERE conversation = $1`, conversation); err != nil {
		return fmt.Errorf("flow delete: %w", err)
	}
	return nil
}

// =============================================================================
// MemoryStore
// =============================================================================

type pgMemoryStore struct{ p *PostgresStores }

func (s *pgMemoryStore) Append(ctx context.Context, conversation string, role Role, text string) error {
	db, err := s.p.conn()
	if err != nil {
		return err
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO `+pgMemoryTable+` (conversation, role, text) VALUES ($1, $2, $3)`,
		conversation, string(role), text); err != nil {
		return fmt.Errorf("memory append: %w", err)
	}
	// Prune past the retention window. Best effort; failure leaves extra rows.
	_, _ = db.ExecContext(ctx, `
		DELETE FROM `+pgMemoryTable+`
		WHERE conversation = $1 AND id NOT IN (
			SELECT id FROM `+pgMemoryTable+`
			WHERE conversation = $1
			ORDER BY id DESC LIMIT $2
		)`, conversation, memoryRetention)
	return nil
}

func (s *pgMemoryStore) Recent(ctx context.Context, conversation string, limit int) ([]Turn, error) {
	db, err := s.p.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = memoryRetention
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT role, text, created_at FROM (
			SELECT id, role, text, created_at FROM `+pgMemoryTable+`
			WHERE conversation = $1
			ORDER BY id DESC LIMIT $2
		) t ORDER BY id ASC`, conversation, limit)
	if err != nil {
		return nil, fmt.Errorf("memory recent: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var (
			role string
			t    Turn
		)
		if err := rows.Scan(&role, &t.Text, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("memory recent: scan: %w", err)
		}
		t.Role = Role(role)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (s *pgMemoryStore) Clear(ctx context.Context, conversation string) error {
	db, err := s.p.conn()
	if err != nil {
		return err
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx, `DELETE FROM `+pgMemoryTable+` WHERE conversation = $1`, conversation); err != nil {
		return fmt.Errorf("memory clear: %w", err)
	}
	return nil
}

// =============================================================================
// ProfileStore
// =============================================================================

type pgProfileStore struct{ p *PostgresStores }

func (s *pgProfileStore) Get(ctx context.Context, conversation string) (*Profile, error) {
	db, err := s.p.conn()
	if err != nil {
		return nil, err
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	var prof Profile
	err = db.QueryRowContext(ctx, `
		SELECT name, age, goal, experience, last_recommendation, updated_at
		FROM `+pgProfileTable+` WHERE conversation = $1`, conversation,
	).Scan(&prof.Name, &prof.Age, &prof.Goal, &prof.Experience, &prof.LastRecommendation, &prof.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("profile get: %w", err)
	}
	return &prof, nil
}

func (s *pgProfileStore) Upsert(ctx context.Context, conversation string, p Profile) error {
	db, err := s.p.conn()
	if err != nil {
		return err
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	// COALESCE(NULLIF(...)) keeps existing values when the incoming field
	// is zero, so partial updates never erase known lead data.
	_, err = db.ExecContext(ctx, `
		INSERT INTO `+pgProfileTable+` (conversation, name, age, goal, experience, last_recommendation, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (conversation) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), `+pgProfileTable+`.name),
			age = CASE WHEN EXCLUDED.age = 0 THEN `+pgProfileTable+`.age ELSE EXCLUDED.age END,
			goal = COALESCE(NULLIF(EXCLUDED.goal, ''), `+pgProfileTable+`.goal),
			experience = COALESCE(NULLIF(EXCLUDED.experience, ''), `+pgProfileTable+`.experience),
			last_recommendation = COALESCE(NULLIF(EXCLUDED.last_recommendation, ''), `+pgProfileTable+`.last_recommendation),
			updated_at = NOW()`,
		conversation, p.Name, p.Age, p.Goal, p.Experience, p.LastRecommendation)
	if err != nil {
		return fmt.Errorf("profile upsert: %w", err)
	}
	return nil
}

// =============================================================================
// LearnedStore
// =============================================================================

type pgLearnedStore struct{ p *PostgresStores }

func (s *pgLearnedStore) Save(ctx context.Context, question, answer string) error {
	db, err := s.p.conn()
	if err != nil {
		return err
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO `+pgLearnedTable+` (question, answer) VALUES ($1, $2)`,
		question, answer); err != nil {
		return fmt.Errorf("learned save: %w", err)
	}
	return nil
}

func (s *pgLearnedStore) Recent(ctx context.Context, limit int) ([]LearnedAnswer, error) {
	db, err := s.p.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT question, answer, created_at FROM (
			SELECT id, question, answer, created_at FROM `+pgLearnedTable+`
			ORDER BY id DESC LIMIT $1
		) t ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("learned recent: %w", err)
	}
	defer rows.Close()

	var items []LearnedAnswer
	for rows.Next() {
		var item LearnedAnswer
		if err := rows.Scan(&item.Question, &item.Answer, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("learned recent: scan: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// =============================================================================
// FollowUpStore
// =============================================================================

type pgFollowUpStore struct{ p *PostgresStores }

func (s *pgFollowUpStore) Schedule(ctx context.Context, f FollowUp) error {
	db, err := s.p.conn()
	if err != nil {
		return err
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO `+pgFollowUpTable+` (id, conversation, stage, scheduled_at) VALUES ($1, $2, $3, $4)`,
		f.ID, f.Conversation, f.Stage, f.ScheduledAt); err != nil {
		return fmt.Errorf("followup schedule: %w", err)
	}
	return nil
}

func (s *pgFollowUpStore) CancelPending(ctx context.Context, conversation string) (int, error) {
	db, err := s.p.conn()
	if err != nil {
		return 0, err
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	res, err := db.ExecContext(ctx, `
		UPDATE `+pgFollowUpTable+` SET cancelled = TRUE
		WHERE conversation = $1 AND NOT sent AND NOT cancelled`, conversation)
	if err != nil {
		return 0, fmt.Errorf("followup cancel: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *pgFollowUpStore) Due(ctx context.Context, now time.Time, limit int) ([]FollowUp, error) {
	db, err := s.p.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT id, conversation, stage, scheduled_at FROM `+pgFollowUpTable+`
		WHERE NOT sent AND NOT cancelled AND scheduled_at <= $1
		ORDER BY scheduled_at ASC LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("followup due: %w", err)
	}
	defer rows.Close()

	var due []FollowUp
	for rows.Next() {
		var f FollowUp
		if err := rows.Scan(&f.ID, &f.Conversation, &f.Stage, &f.ScheduledAt); err != nil {
			return nil, fmt.Errorf("followup due: scan: %w", err)
		}
		due = append(due, f)
	}
	return due, rows.Err()
}

func (s *pgFollowUpStore) MarkSent(ctx context.Context, id string) error {
	return s.mark(ctx, id, "sent")
}

func (s *pgFollowUpStore) MarkCancelled(ctx context.Context, id string) error {
	return s.mark(ctx, id, "cancelled")
}

func (s *pgFollowUpStore) mark(ctx context.Context, id, column string) error {
	db, err := s.p.conn()
	if err != nil {
		return err
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx,
		`UPDATE `+pgFollowUpTable+` SET `+column+` = TRUE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("followup mark %s: %w", column, err)
	}
	return nil
}

// =============================================================================
// FunnelStore
// =============================================================================

type pgFunnelStore struct{ p *PostgresStores }

func (s *pgFunnelStore) Track(ctx context.Context, conversation, event string, metadata map[string]any) error {
	db, err := s.p.conn()
	if err != nil {
		return err
	}
	payload := "{}"
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("funnel track: encode metadata: %w", err)
		}
		payload = string(raw)
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	if _, err := db.ExecContext(ctx,
		`INSERT INTO `+pgFunnelTable+` (conversation, event, metadata) VALUES ($1, $2, $3)`,
		conversation, event, payload); err != nil {
		return fmt.Errorf("funnel track: %w", err)
	}
	return nil
}

func (s *pgFunnelStore) HasEvent(ctx context.Context, conversation, event string) (bool, error) {
	db, err := s.p.conn()
	if err != nil {
		return false, err
	}
	ctx, cancel := pgCtx(ctx)
	defer cancel()

	var exists bool
	err = db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM `+pgFunnelTable+` WHERE conversation = $1 AND event = $2)`,
		conversation, event).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("funnel has event: %w", err)
	}
	return exists, nil
}

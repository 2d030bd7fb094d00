package followup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studiobotics/attendant/botengine/config"
	"github.com/studiobotics/attendant/botengine/store"
	"github.com/studiobotics/attendant/connector"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type fakeMessenger struct {
	mu    sync.Mutex
	texts []string
	to    []string
	fail  bool
}

func (f *fakeMessenger) SendText(_ context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("send failed")
	}
	f.to = append(f.to, to)
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeMessenger) SendList(context.Context, string, config.ListMessage) error { return nil }
func (f *fakeMessenger) SendLocation(context.Context, string, config.Location) error {
	return nil
}
func (f *fakeMessenger) SendReaction(context.Context, string, connector.MessageRef, string) error {
	return nil
}
func (f *fakeMessenger) SetPresence(context.Context, string, connector.Presence) error { return nil }

func newTestScheduler(t *testing.T) (*Scheduler, store.Stores, *fakeMessenger, *time.Time) {
	t.Helper()
	cfg := config.Default()
	cfg.FollowUpSendPause = 0
	stores := store.NewInMemoryStores()
	msgr := &fakeMessenger{}
	content, err := config.NewContentProvider("", nopLogger{})
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewScheduler(cfg, stores, msgr, content, nopLogger{})
	s.SetClock(func() time.Time { return now })
	s.SetSleep(func(context.Context, time.Duration) {})
	return s, stores, msgr, &now
}

func TestScheduleAllCreatesEveryStage(t *testing.T) {
	s, stores, _, now := newTestScheduler(t)
	ctx := context.Background()

	s.ScheduleAll(ctx, "5511999@s.whatsapp.net")

	due, err := stores.FollowUp.Due(ctx, now.Add(25*time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, due, 3)
	assert.Equal(t, "reminder_15m", due[0].Stage)
	assert.Equal(t, "reminder_2h", due[1].Stage)
	assert.Equal(t, "reminder_24h", due[2].Stage)
}

func TestScheduleAllReplacesPending(t *testing.T) {
	s, stores, _, now := newTestScheduler(t)
	ctx := context.Background()

	s.ScheduleAll(ctx, "conv")
	s.ScheduleAll(ctx, "conv")

	due, err := stores.FollowUp.Due(ctx, now.Add(25*time.Hour), 20)
	require.NoError(t, err)
	assert.Len(t, due, 3)
}

func TestProcessDueSendsAndMarks(t *testing.T) {
	s, stores, msgr, now := newTestScheduler(t)
	ctx := context.Background()

	s.ScheduleAll(ctx, "conv")
	require.NoError(t, stores.Profiles.Upsert(ctx, "conv", store.Profile{Name: "Jonathan"}))

	*now = now.Add(16 * time.Minute)
	sent := s.ProcessDue(ctx)

	assert.Equal(t, 1, sent)
	require.Len(t, msgr.texts, 1)
	assert.Contains(t, msgr.texts[0], "Jonathan")
	assert.Equal(t, "conv", msgr.to[0])

	has, err := stores.Funnel.HasEvent(ctx, "conv", "followup_sent")
	require.NoError(t, err)
	assert.True(t, has)

	// Already-sent reminder does not fire twice.
	assert.Equal(t, 0, s.ProcessDue(ctx))
}

func TestProcessDueUsesDefaultNameWithoutProfile(t *testing.T) {
	s, _, msgr, now := newTestScheduler(t)
	ctx := context.Background()

	s.ScheduleAll(ctx, "conv")
	*now = now.Add(16 * time.Minute)
	s.ProcessDue(ctx)

	require.Len(t, msgr.texts, 1)
	assert.False(t, strings.Contains(msgr.texts[0], "{name}"))
}

func TestProcessDueCancelsOnSendFailure(t *testing.T) {
	s, _, msgr, now := newTestScheduler(t)
	ctx := context.Background()

	s.ScheduleAll(ctx, "conv")
	msgr.fail = true
	*now = now.Add(16 * time.Minute)

	assert.Equal(t, 0, s.ProcessDue(ctx))

	// The failed reminder was cancelled, not left pending.
	msgr.fail = false
	assert.Equal(t, 0, s.ProcessDue(ctx))
}

func TestCancelDropsPending(t *testing.T) {
	s, _, msgr, now := newTestScheduler(t)
	ctx := context.Background()

	s.ScheduleAll(ctx, "conv")
	s.Cancel(ctx, "conv")

	*now = now.Add(25 * time.Hour)
	assert.Equal(t, 0, s.ProcessDue(ctx))
	assert.Empty(t, msgr.texts)
}

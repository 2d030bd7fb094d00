// Package followup schedules and delivers staged reminders for leads that
// went quiet after seeing prices.
package followup

import (
	"context"
	"time"

	"github.com/studiobotics/attendant/botengine/config"
	"github.com/studiobotics/attendant/botengine/store"
	"github.com/studiobotics/attendant/connector"
)

// Logger is the minimal logging interface used by this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Scheduler persists reminder stages and delivers the due ones.
type Scheduler struct {
	cfg       *config.Config
	followUps store.FollowUpStore
	profiles  store.ProfileStore
	funnel    store.FunnelStore
	messenger connector.Messenger
	content   *config.ContentProvider
	logger    Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func NewScheduler(cfg *config.Config, stores store.Stores, messenger connector.Messenger, content *config.ContentProvider, logger Logger) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		followUps: stores.FollowUp,
		profiles:  stores.Profiles,
		funnel:    stores.Funnel,
		messenger: messenger,
		content:   content,
		logger:    logger,
		now:       time.Now,
		sleep: func(ctx context.Context, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		},
	}
}

// SetClock overrides the time source, for tests.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// SetSleep overrides the inter-send pause, for tests.
func (s *Scheduler) SetSleep(sleep func(ctx context.Context, d time.Duration)) { s.sleep = sleep }

// ScheduleAll replaces any pending reminders for the conversation with the
// full configured ladder, anchored at now.
func (s *Scheduler) ScheduleAll(ctx context.Context, conversation string) {
	s.Cancel(ctx, conversation)
	now := s.now()
	for _, stage := range s.cfg.FollowUpStages {
		err := s.followUps.Schedule(ctx, store.FollowUp{
			Conversation: conversation,
			Stage:        stage.Name,
			ScheduledAt:  now.Add(stage.Delay),
		})
		if err != nil {
			s.logger.Warn("followup_schedule_failed", "conversation", conversation, "stage", stage.Name, "error", err)
		}
	}
	s.logger.Info("followups_scheduled", "conversation", conversation, "stages", len(s.cfg.FollowUpStages))
}

// Cancel drops pending reminders, typically because the lead converted or
// re-engaged on their own.
func (s *Scheduler) Cancel(ctx context.Context, conversation string) {
	n, err := s.followUps.CancelPending(ctx, conversation)
	if err != nil {
		s.logger.Warn("followup_cancel_failed", "conversation", conversation, "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("followups_cancelled", "conversation", conversation, "count", n)
	}
}

// Run polls for due reminders until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FollowUpPoll)
	defer ticker.Stop()

	s.ProcessDue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ProcessDue(ctx)
		}
	}
}

// ProcessDue sends every due reminder and returns how many went out. A
// reminder that fails to send is cancelled rather than retried: a stale
// nudge arriving hours late reads worse than none.
func (s *Scheduler) ProcessDue(ctx context.Context) int {
	due, err := s.followUps.Due(ctx, s.now(), s.cfg.FollowUpBatch)
	if err != nil {
		s.logger.Warn("followup_poll_failed", "error", err)
		return 0
	}

	sent := 0
	for _, f := range due {
		text := s.message(ctx, f)
		if text == "" {
			s.logger.Warn("followup_stage_unknown", "stage", f.Stage)
			_ = s.followUps.MarkCancelled(ctx, f.ID)
			continue
		}
		if err := s.messenger.SendText(ctx, f.Conversation, text); err != nil {
			s.logger.Warn("followup_send_failed", "conversation", f.Conversation, "stage", f.Stage, "error", err)
			_ = s.followUps.MarkCancelled(ctx, f.ID)
			continue
		}
		if err := s.followUps.MarkSent(ctx, f.ID); err != nil {
			s.logger.Warn("followup_mark_failed", "id", f.ID, "error", err)
		}
		if err := s.funnel.Track(ctx, f.Conversation, "followup_sent", map[string]any{"stage": f.Stage}); err != nil {
			s.logger.Debug("funnel_track_failed", "error", err)
		}
		s.logger.Info("followup_sent", "conversation", f.Conversation, "stage", f.Stage)
		sent++

		if s.cfg.FollowUpSendPause > 0 {
			s.sleep(ctx, s.cfg.FollowUpSendPause)
		}
	}
	return sent
}

func (s *Scheduler) message(ctx context.Context, f store.FollowUp) string {
	c := s.content.Current()
	template, ok := c.FollowUpMessages[f.Stage]
	if !ok {
		return ""
	}
	name := c.DefaultLeadName
	if prof, err := s.profiles.Get(ctx, f.Conversation); err == nil && prof.Name != "" {
		name = prof.Name
	}
	return config.Render(template, "name", name)
}

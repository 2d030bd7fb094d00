package connector

import (
	"context"
	"time"

	"github.com/studiobotics/attendant/botengine/config"
)

const listComposePause = 1500 * time.Millisecond

// Paced wraps a Messenger with typing simulation: before each text the
// conversation shows "composing" for a duration proportional to the text
// length, so automated replies read as human-paced.
type Paced struct {
	next   Messenger
	logger Logger

	perChar time.Duration
	min     time.Duration
	max     time.Duration

	sleep func(ctx context.Context, d time.Duration)
}

func NewPaced(next Messenger, cfg *config.Config, logger Logger) *Paced {
	return &Paced{
		next:    next,
		logger:  logger,
		perChar: cfg.TypingPerChar,
		min:     cfg.TypingMin,
		max:     cfg.TypingMax,
		sleep:   sleepCtx,
	}
}

// SetSleep overrides the pause function, for tests.
func (p *Paced) SetSleep(sleep func(ctx context.Context, d time.Duration)) { p.sleep = sleep }

// TypingTime returns the simulated typing duration for a text.
func (p *Paced) TypingTime(text string) time.Duration {
	d := time.Duration(len(text)) * p.perChar
	if d < p.min {
		d = p.min
	}
	if d > p.max {
		d = p.max
	}
	return d
}

func (p *Paced) SendText(ctx context.Context, to, text string) error {
	if text == "" {
		return nil
	}
	if err := p.next.SetPresence(ctx, to, PresenceComposing); err != nil {
		p.logger.Debug("presence_failed", "to", to, "error", err)
	}
	p.sleep(ctx, p.TypingTime(text))
	return p.next.SendText(ctx, to, text)
}

func (p *Paced) SendList(ctx context.Context, to string, list config.ListMessage) error {
	if err := p.next.SetPresence(ctx, to, PresenceComposing); err != nil {
		p.logger.Debug("presence_failed", "to", to, "error", err)
	}
	p.sleep(ctx, listComposePause)
	return p.next.SendList(ctx, to, list)
}

func (p *Paced) SendLocation(ctx context.Context, to string, loc config.Location) error {
	return p.next.SendLocation(ctx, to, loc)
}

func (p *Paced) SendReaction(ctx context.Context, to string, ref MessageRef, emoji string) error {
	return p.next.SendReaction(ctx, to, ref, emoji)
}

func (p *Paced) SetPresence(ctx context.Context, to string, presence Presence) error {
	return p.next.SetPresence(ctx, to, presence)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

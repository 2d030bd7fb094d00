// Package router dispatches inbound messages through a fixed-precedence
// handler chain. Each handler either claims the message or passes it down;
// the first claim wins. Media acknowledgement runs on its own lane so a
// voice note is acknowledged even when a text handler already replied.
package router

import (
	"context"
	"time"

	"github.com/studiobotics/attendant/botengine/config"
	"github.com/studiobotics/attendant/botengine/flow"
	"github.com/studiobotics/attendant/botengine/genai"
	"github.com/studiobotics/attendant/botengine/handoff"
	"github.com/studiobotics/attendant/botengine/observability"
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

// Turn is one inbound message plus everything loaded for it up front.
type Turn struct {
	Conversation string
	Name         string // sender display name, smart-cased
	Text         string // raw message text
	Input        string // routing form: row ID when present, else trimmed lowercase text
	Ref          connector.MessageRef
	HasAudio     bool
	State        *flow.Record // nil when the conversation has no stored state
}

// FromOwner reports whether the message was sent by the business account
// itself, which is how operators interject from the official number.
func (t *Turn) FromOwner() bool { return t.Ref.FromMe }

// Handler is one step of the chain. Handle returns true when it claimed the
// turn; later steps then never see it.
type Handler interface {
	Name() string
	Handle(ctx context.Context, t *Turn) (bool, error)
}

// Responder produces a generative reply with an optional action directive.
type Responder interface {
	Reply(ctx context.Context, conversation, userText string) genai.Reply
}

// Alerter pushes operator notifications.
type Alerter interface {
	NotifyHandoff(ctx context.Context, lead connector.Lead)
	NotifyRead(ctx context.Context, lead connector.Lead)
	NotifyLead(ctx context.Context, lead connector.Lead, intent string)
}

// Reminders schedules and cancels the follow-up ladder.
type Reminders interface {
	ScheduleAll(ctx context.Context, conversation string)
	Cancel(ctx context.Context, conversation string)
}

// Deps bundles everything the handlers share.
type Deps struct {
	Cfg       *config.Config
	Content   *config.ContentProvider
	Stores    store.Stores
	Messenger connector.Messenger
	Alerter   Alerter
	Labeler   connector.Labeler
	Responder Responder
	Reminders Reminders
	Handoff   *handoff.Monitor
	Logger    Logger

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration)
}

func (d *Deps) fill() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Sleep == nil {
		d.Sleep = func(ctx context.Context, dur time.Duration) {
			timer := time.NewTimer(dur)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
		}
	}
}

// Chain routes turns through the handlers in precedence order.
type Chain struct {
	deps     Deps
	actions  *Actions
	handlers []Handler
	mute     Handler
	media    Handler
}

// NewChain wires the full handler chain. Order is behavior: owner commands
// outrank the mute check, the mute check outranks everything a lead can
// type, and the generative fallback is last because it always claims.
func NewChain(deps Deps) *Chain {
	deps.fill()
	a := &Actions{deps: deps}
	mute := &muteHandler{deps: deps}
	return &Chain{
		deps:    deps,
		actions: a,
		mute:    mute,
		handlers: []Handler{
			&ownerHandler{deps: deps, actions: a},
			mute,
			&commandHandler{deps: deps, actions: a},
			&scheduleLeadHandler{deps: deps, actions: a},
			&siteLeadHandler{deps: deps, actions: a},
			&quizHandler{deps: deps, actions: a},
			&menuHandler{deps: deps, actions: a},
			&numericHandler{deps: deps, actions: a},
			&keywordHandler{deps: deps, actions: a},
			&greetingHandler{deps: deps, actions: a},
			&fallbackHandler{deps: deps, actions: a},
		},
		media: &audioHandler{deps: deps, actions: a},
	}
}

// Route runs the turn through the text chain, then the media lane. It
// returns the name of the handler that claimed the turn, or "".
func (c *Chain) Route(ctx context.Context, t *Turn) string {
	// Fresh lead activity voids the pending follow-up ladder; a price view
	// later in the same turn re-arms it.
	if !t.FromOwner() {
		c.deps.Reminders.Cancel(ctx, t.Conversation)
	}

	claimed := ""
	if t.Input != "" || t.FromOwner() {
		for _, h := range c.handlers {
			handled, err := h.Handle(ctx, t)
			if err != nil {
				c.deps.Logger.Warn("handler_error", "handler", h.Name(), "conversation", t.Conversation, "error", err)
			}
			if handled {
				claimed = h.Name()
				observability.RecordHandlerMatch(h.Name())
				c.deps.Logger.Info("turn_handled", "handler", h.Name(), "conversation", t.Conversation)
				break
			}
		}
	}

	// Voice notes are acknowledged regardless of what the text lane did,
	// but the mute window still silences them: an audio-only turn never ran
	// the text lane, so the mute check fires here before dispatch.
	if t.HasAudio && !t.FromOwner() && claimed != c.mute.Name() {
		if dropped, err := c.mute.Handle(ctx, t); err != nil {
			c.deps.Logger.Warn("handler_error", "handler", c.mute.Name(), "conversation", t.Conversation, "error", err)
		} else if dropped {
			if claimed == "" {
				claimed = c.mute.Name()
			}
		} else if handled, err := c.media.Handle(ctx, t); err != nil {
			c.deps.Logger.Warn("handler_error", "handler", c.media.Name(), "conversation", t.Conversation, "error", err)
		} else if handled {
			observability.RecordHandlerMatch(c.media.Name())
			if claimed == "" {
				claimed = c.media.Name()
			}
		}
	}
	return claimed
}

// Package orchestrator is the entry point for inbound webhook events: it
// classifies, filters, deduplicates and then pushes each message through the
// per-conversation queue into the handler chain.
package orchestrator

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/studiobotics/attendant/botengine/dedup"
	"github.com/studiobotics/attendant/botengine/event"
	"github.com/studiobotics/attendant/botengine/flow"
	"github.com/studiobotics/attendant/botengine/observability"
	"github.com/studiobotics/attendant/botengine/router"
	"github.com/studiobotics/attendant/botengine/serializer"
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

// Orchestrator fans webhook events into per-conversation processing.
type Orchestrator struct {
	chain     *router.Chain
	stores    store.Stores
	dedup     *dedup.Tracker
	queue     *serializer.Queue
	messenger connector.Messenger
	alerter   router.Alerter
	logger    Logger

	callReply func() string
	now       func() time.Time
}

// Options carries the orchestrator's collaborators.
type Options struct {
	Chain     *router.Chain
	Stores    store.Stores
	Dedup     *dedup.Tracker
	Queue     *serializer.Queue
	Messenger connector.Messenger
	Alerter   router.Alerter
	CallReply func() string
	Logger    Logger
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		chain:     opts.Chain,
		stores:    opts.Stores,
		dedup:     opts.Dedup,
		queue:     opts.Queue,
		messenger: opts.Messenger,
		alerter:   opts.Alerter,
		callReply: opts.CallReply,
		logger:    opts.Logger,
		now:       time.Now,
	}
	if o.callReply == nil {
		o.callReply = func() string { return "" }
	}
	return o
}

// SetClock overrides the time source, for tests.
func (o *Orchestrator) SetClock(now func() time.Time) { o.now = now }

// HandleEvent dispatches one webhook envelope. It never blocks on message
// processing: messages are queued per conversation and handled in arrival
// order by background workers.
func (o *Orchestrator) HandleEvent(ctx context.Context, e *event.Envelope) {
	kind := e.Classify()
	switch kind {
	case event.KindMessageUpsert:
		o.handleMessage(ctx, e)
	case event.KindMessageUpdate:
		o.handleStatus(ctx, e)
	case event.KindCall:
		o.handleCall(ctx, e)
	case event.KindPresenceUpdate:
		o.handlePresence(e)
	default:
		o.logger.Debug("event_ignored", "event", e.Event)
		observability.RecordEvent(string(kind), "ignored", 0)
	}
}

// Drain waits until every queued message has been processed, up to the
// given timeout. It exists for shutdown and tests.
func (o *Orchestrator) Drain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if o.queue.ActiveKeys() == 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return o.queue.ActiveKeys() == 0
}

func (o *Orchestrator) handleMessage(ctx context.Context, e *event.Envelope) {
	msg, err := e.DecodeMessage()
	if err != nil {
		o.logger.Warn("message_decode_failed", "error", err)
		observability.RecordEvent(string(event.KindMessageUpsert), "decode_error", 0)
		return
	}
	conversation := msg.Key.RemoteJID
	switch {
	case msg.Key.ID == "" || conversation == "":
		o.logger.Debug("message_unaddressed")
		observability.RecordEvent(string(event.KindMessageUpsert), "dropped", 0)
		return
	case event.IsGroup(conversation):
		o.logger.Debug("group_message_ignored", "conversation", conversation)
		observability.RecordEvent(string(event.KindMessageUpsert), "group_ignored", 0)
		return
	case o.dedup.Seen(msg.Key.ID):
		observability.RecordDedupHit()
		o.logger.Debug("duplicate_dropped", "message_id", msg.Key.ID)
		observability.RecordEvent(string(event.KindMessageUpsert), "duplicate", 0)
		return
	}

	// The webhook is acknowledged before processing, so the request context
	// is gone by the time the queue slot runs.
	bg := context.WithoutCancel(ctx)
	o.queue.Enqueue(conversation, func() {
		o.process(bg, conversation, msg)
	})
}

// process runs inside the conversation's queue slot: at most one invocation
// per conversation at a time, in arrival order.
func (o *Orchestrator) process(ctx context.Context, conversation string, msg *event.Message) {
	start := o.now()
	ctx, span := otel.Tracer("attendant/orchestrator").Start(ctx, "process_message")
	span.SetAttributes(attribute.String("message.id", msg.Key.ID))
	defer span.End()

	turn := &router.Turn{
		Conversation: conversation,
		Name:         event.SmartName(msg.PushName),
		Text:         msg.Text(),
		Input:        msg.NormalizedInput(),
		HasAudio:     msg.HasAudio(),
		Ref: connector.MessageRef{
			ID:        msg.Key.ID,
			RemoteJID: msg.Key.RemoteJID,
			FromMe:    msg.Key.FromMe,
		},
	}
	if rec, err := o.stores.Flow.Get(ctx, conversation); err == nil {
		turn.State = rec
	}

	// The lead's turn is remembered before routing so the generative
	// fallback sees it as the latest exchange.
	if turn.Text != "" && !turn.FromOwner() {
		if err := o.stores.Memory.Append(ctx, conversation, store.RoleUser, turn.Text); err != nil {
			o.logger.Warn("memory_append_failed", "conversation", conversation, "error", err)
		}
	}

	handler := o.chain.Route(ctx, turn)
	status := "handled"
	if handler == "" {
		status = "unhandled"
	}
	span.SetAttributes(attribute.String("handler", handler))
	observability.RecordEvent(string(event.KindMessageUpsert), status, int(time.Since(start).Milliseconds()))
}

// handleStatus watches read receipts. A lead reading our message while deep
// in the schedule browse is a buying signal worth an operator ping; nothing
// else about the conversation changes.
func (o *Orchestrator) handleStatus(ctx context.Context, e *event.Envelope) {
	upd, err := e.DecodeStatusUpdate()
	if err != nil || upd.Key.RemoteJID == "" {
		return
	}
	if upd.Status != "READ" && upd.Status != "read" {
		return
	}
	conversation := upd.Key.RemoteJID
	rec, err := o.stores.Flow.Get(ctx, conversation)
	if err != nil || !rec.State.IsHighIntent() {
		return
	}
	name := rec.StringData(flow.DataName)
	o.alerter.NotifyRead(ctx, connector.Lead{Conversation: conversation, Name: name})
	observability.RecordEvent(string(event.KindMessageUpdate), "high_intent_read", 0)
	o.logger.Info("high_intent_read", "conversation", conversation, "state", rec.State)
}

// handleCall auto-replies to voice/video calls, which the bot cannot take.
func (o *Orchestrator) handleCall(ctx context.Context, e *event.Envelope) {
	call, err := e.DecodeCall()
	if err != nil {
		return
	}
	caller := call.Caller()
	if caller == "" || event.IsGroup(caller) {
		return
	}
	reply := o.callReply()
	if reply == "" {
		return
	}
	if err := o.messenger.SendText(ctx, caller, reply); err != nil {
		o.logger.Warn("call_reply_failed", "caller", caller, "error", err)
		observability.RecordEvent(string(event.KindCall), "error", 0)
		return
	}
	observability.RecordEvent(string(event.KindCall), "handled", 0)
}

func (o *Orchestrator) handlePresence(e *event.Envelope) {
	upd, err := e.DecodePresence()
	if err != nil {
		return
	}
	for who, p := range upd.Presences {
		o.logger.Debug("presence_observed", "who", who, "presence", p.LastKnownPresence)
	}
	observability.RecordEvent(string(event.KindPresenceUpdate), "observed", 0)
}

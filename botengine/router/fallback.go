package router

import (
	"context"

	"github.com/studiobotics/attendant/botengine/config"
	"github.com/studiobotics/attendant/botengine/event"
	"github.com/studiobotics/attendant/botengine/genai"
	"github.com/studiobotics/attendant/connector"
)

// ===== GENERATIVE FALLBACK =====

// fallbackHandler hands everything no earlier step claimed to the language
// model. The reply's display text goes out first; a directive, if any,
// executes one catalog action after a short beat. The whole turn produces at
// most one side effect.
type fallbackHandler struct {
	deps    Deps
	actions *Actions
}

func (h *fallbackHandler) Name() string { return "generative" }

func (h *fallbackHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	// A structured row id reaching this point is a click on a list we no
	// longer track. Feeding it to the model would produce nonsense.
	if event.HasMenuPrefix(t.Input) {
		h.deps.Logger.Debug("stale_menu_click_dropped", "conversation", t.Conversation, "input", t.Input)
		return true, nil
	}

	reply := h.deps.Responder.Reply(ctx, t.Conversation, t.Text)

	if reply.Directive == genai.DirectiveUnknown {
		// The model admitted defeat: replace its text with the fixed
		// shrug and reorient the lead with the menu.
		c := h.deps.Content.Current()
		if err := h.deps.Messenger.SendText(ctx, t.Conversation, c.UnknownReply); err != nil {
			return true, err
		}
		h.actions.pause(ctx)
		return true, h.actions.SendMainMenu(ctx, t)
	}

	if reply.DisplayText != "" {
		if err := h.deps.Messenger.SendText(ctx, t.Conversation, reply.DisplayText); err != nil {
			return true, err
		}
	}
	if reply.Directive == genai.DirectiveNone {
		return true, nil
	}

	h.actions.pause(ctx)
	switch reply.Directive {
	case genai.DirectiveShowMenu:
		return true, h.actions.SendMainMenu(ctx, t)
	case genai.DirectiveShowPrices:
		return true, h.actions.SendPrices(ctx, t)
	case genai.DirectiveShowSchedule:
		return true, h.actions.SendScheduleList(ctx, t)
	case genai.DirectiveShowLocation:
		return true, h.actions.SendLocationInfo(ctx, t)
	case genai.DirectiveHandoff:
		return true, h.actions.SendHandoff(ctx, t)
	}
	return true, nil
}

// ===== AUDIO =====

// audioHandler acknowledges voice notes on the media lane: a reaction, a
// recording presence, and a short text so the lead knows the note landed.
type audioHandler struct {
	deps    Deps
	actions *Actions
}

func (h *audioHandler) Name() string { return "audio_ack" }

func (h *audioHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	if !t.HasAudio {
		return false, nil
	}
	c := h.deps.Content.Current()
	if c.AudioEmoji != "" {
		if err := h.deps.Messenger.SendReaction(ctx, t.Conversation, t.Ref, c.AudioEmoji); err != nil {
			h.deps.Logger.Debug("reaction_failed", "conversation", t.Conversation, "error", err)
		}
	}
	// Pretend to listen before answering.
	if err := h.deps.Messenger.SetPresence(ctx, t.Conversation, connector.PresenceRecording); err != nil {
		h.deps.Logger.Debug("presence_failed", "conversation", t.Conversation, "error", err)
	}
	ack := config.Render(c.AudioAck, "name", h.actions.DisplayName(ctx, t))
	h.actions.pause(ctx)
	return true, h.deps.Messenger.SendText(ctx, t.Conversation, ack)
}

package router

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/studiobotics/attendant/botengine/observability"
)

// ===== OWNER =====

// ownerHandler processes messages the business account sends into a lead's
// chat. `/bot` resumes the bot, `/stop` pauses it, and any other text is an
// operator taking over: the bot mutes itself and learns the exchange.
type ownerHandler struct {
	deps    Deps
	actions *Actions
}

func (h *ownerHandler) Name() string { return "owner" }

func (h *ownerHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	if !t.FromOwner() {
		return false, nil
	}
	c := h.deps.Content.Current()
	text := strings.TrimSpace(t.Text)

	switch strings.ToLower(text) {
	case "/reset", "/debug":
		// Shared control commands, served further down the chain.
		return false, nil
	case "/bot":
		if err := h.deps.Handoff.Disarm(ctx, t.Conversation); err != nil {
			h.deps.Logger.Warn("handoff_disarm_failed", "conversation", t.Conversation, "error", err)
		}
		return true, h.deps.Messenger.SendText(ctx, t.Conversation, c.BotResumed)
	case "/stop":
		if err := h.deps.Handoff.Arm(ctx, t.Conversation, h.deps.Now()); err != nil {
			h.deps.Logger.Warn("handoff_arm_failed", "conversation", t.Conversation, "error", err)
		}
		return true, h.deps.Messenger.SendText(ctx, t.Conversation, c.BotPaused)
	}

	if text == "" {
		return true, nil
	}

	// A free-form operator reply silences the bot and, when the lead's last
	// question is known, becomes a learned Q&A pair for future fallbacks.
	if err := h.deps.Handoff.Arm(ctx, t.Conversation, h.deps.Now()); err != nil {
		h.deps.Logger.Warn("handoff_arm_failed", "conversation", t.Conversation, "error", err)
	}
	if question := h.actions.lastUserQuestion(ctx, t.Conversation); question != "" {
		if err := h.deps.Stores.Learned.Save(ctx, question, text); err != nil {
			h.deps.Logger.Warn("learned_save_failed", "error", err)
		} else {
			h.deps.Logger.Info("answer_learned", "conversation", t.Conversation)
		}
	}
	return true, nil
}

// ===== MUTE =====

// muteHandler drops lead messages while an operator holds the conversation.
// An expired window clears the stored state, and the turn continues down the
// chain as if the conversation were fresh.
type muteHandler struct {
	deps Deps
}

func (h *muteHandler) Name() string { return "mute" }

func (h *muteHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	if t.FromOwner() || t.State == nil || !t.State.State.IsMuted() {
		return false, nil
	}
	if h.deps.Handoff.Active(ctx, t.State, h.deps.Now()) {
		observability.RecordMutedDrop()
		h.deps.Logger.Info("muted_drop", "conversation", t.Conversation)
		return true, nil
	}
	t.State = nil
	return false, nil
}

// ===== LEAD COMMANDS =====

// commandHandler serves the lead-facing slash commands.
type commandHandler struct {
	deps    Deps
	actions *Actions
}

func (h *commandHandler) Name() string { return "commands" }

func (h *commandHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	c := h.deps.Content.Current()
	switch t.Input {
	case "/reset":
		if err := h.deps.Stores.Memory.Clear(ctx, t.Conversation); err != nil {
			h.deps.Logger.Warn("memory_clear_failed", "conversation", t.Conversation, "error", err)
		}
		h.actions.clearState(ctx, t.Conversation)
		h.deps.Reminders.Cancel(ctx, t.Conversation)
		t.State = nil
		return true, h.deps.Messenger.SendText(ctx, t.Conversation, c.ResetDone)
	case "/debug":
		dump := "null"
		if t.State != nil {
			if raw, err := json.Marshal(t.State); err == nil {
				dump = string(raw)
			}
		}
		return true, h.deps.Messenger.SendText(ctx, t.Conversation, c.DebugPrefix+dump)
	}
	return false, nil
}

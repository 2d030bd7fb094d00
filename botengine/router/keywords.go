package router

import (
	"context"

	"github.com/studiobotics/attendant/botengine/config"
	"github.com/studiobotics/attendant/botengine/event"
)

// ===== DIRECT KEYWORDS =====

// keywordHandler answers messages whose text plainly names an intent:
// schedule, prices, location or a human. It never fires on structured row
// ids, those belong to the menu handler.
type keywordHandler struct {
	deps    Deps
	actions *Actions
}

func (h *keywordHandler) Name() string { return "keywords" }

func (h *keywordHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	if event.HasMenuPrefix(t.Input) {
		return false, nil
	}
	c := h.deps.Content.Current()

	switch {
	case event.ContainsAny(t.Text, c.ScheduleKeywords):
		intro := config.Render(c.KeywordScheduleIntro, "name", h.actions.DisplayName(ctx, t))
		if err := h.deps.Messenger.SendText(ctx, t.Conversation, intro); err != nil {
			return true, err
		}
		h.actions.pause(ctx)
		return true, h.actions.SendScheduleList(ctx, t)
	case event.ContainsAny(t.Text, c.PriceKeywords):
		return true, h.actions.SendPrices(ctx, t)
	case event.ContainsAny(t.Text, c.LocationKeywords):
		return true, h.actions.SendLocationInfo(ctx, t)
	case event.ContainsAny(t.Text, c.HumanKeywords):
		return true, h.actions.SendHandoff(ctx, t)
	}
	return false, nil
}

// ===== GREETING =====

// greetingHandler resets the conversation on a greeting or a bare "0": any
// stored state is dropped and the main menu is presented fresh.
type greetingHandler struct {
	deps    Deps
	actions *Actions
}

func (h *greetingHandler) Name() string { return "greeting" }

func (h *greetingHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	c := h.deps.Content.Current()
	if t.Input != "0" && !isGreeting(t.Input, c.Greetings) {
		return false, nil
	}

	h.actions.clearState(ctx, t.Conversation)
	if c.GreetingEmoji != "" {
		if err := h.deps.Messenger.SendReaction(ctx, t.Conversation, t.Ref, c.GreetingEmoji); err != nil {
			h.deps.Logger.Debug("reaction_failed", "conversation", t.Conversation, "error", err)
		}
	}

	seen, err := h.deps.Stores.Funnel.HasEvent(ctx, t.Conversation, eventFirstContact)
	if err == nil && !seen {
		h.actions.track(ctx, t.Conversation, eventFirstContact, map[string]any{"source": "greeting"})
	}
	return true, h.actions.SendMainMenu(ctx, t)
}

// isGreeting matches the whole input against the greeting list. Substring
// matching would misfire ("oi" sits inside too many words).
func isGreeting(input string, greetings []string) bool {
	for _, g := range greetings {
		if input == g {
			return true
		}
	}
	return false
}

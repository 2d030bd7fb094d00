package router

import (
	"context"
	"strings"

	"github.com/studiobotics/attendant/botengine/event"
	"github.com/studiobotics/attendant/botengine/flow"
)

// menuHandler serves menu navigation: structured row ids from any state, and
// bare digits when the conversation sits in a menu state. Digits line up
// with the numbered-text rendering each list was delivered as.
type menuHandler struct {
	deps    Deps
	actions *Actions
}

func (h *menuHandler) Name() string { return "menu" }

func (h *menuHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	if event.HasMenuPrefix(t.Input) {
		return h.dispatchRow(ctx, t, t.Input)
	}
	if t.State == nil || !t.State.State.IsMenu() {
		return false, nil
	}
	if !event.IsDigitOption(t.Input) {
		return false, nil
	}

	c := h.deps.Content.Current()
	var rowID string
	switch t.State.State {
	case flow.StateMenuMain:
		rowID = rowForInput(c.MainMenu, t.Input)
	case flow.StateSelectModality:
		rowID = rowForInput(c.ScheduleList, t.Input)
	case flow.StateViewModalityDetails:
		rowID = rowForInput(c.NextSteps, t.Input)
	}
	if rowID == "" {
		return false, nil
	}
	return h.dispatchRow(ctx, t, rowID)
}

func (h *menuHandler) dispatchRow(ctx context.Context, t *Turn, rowID string) (bool, error) {
	switch rowID {
	case "menu_dance":
		return true, h.actions.StartQuiz(ctx, t)
	case "menu_schedule":
		return true, h.actions.SendScheduleList(ctx, t)
	case "menu_prices":
		return true, h.actions.SendPrices(ctx, t)
	case "menu_location":
		return true, h.actions.SendLocationInfo(ctx, t)
	case "menu_human":
		return true, h.actions.SendHandoff(ctx, t)
	case "menu_menu":
		return true, h.actions.SendMainMenu(ctx, t)
	case "mod_outros":
		return true, h.actions.SendOtherModalities(ctx, t)
	case "final_booking":
		return true, h.actions.SendBookingIntro(ctx, t)
	}
	if modality, ok := strings.CutPrefix(rowID, "mod_"); ok {
		return true, h.actions.SendModalityDetails(ctx, t, modality)
	}
	// goal_/exp_ ids outside the quiz are stale clicks; swallow them.
	h.deps.Logger.Debug("stale_row_ignored", "conversation", t.Conversation, "row", rowID)
	return true, nil
}

// numericHandler is the safety net for a bare digit arriving with no stored
// state, usually a lead answering a menu whose state already expired. It
// reinstates the main menu context and replays the digit against it.
type numericHandler struct {
	deps    Deps
	actions *Actions
}

func (h *numericHandler) Name() string { return "numeric_safety" }

func (h *numericHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	if t.State != nil && t.State.State != flow.StateNone {
		return false, nil
	}
	if !event.IsDigitOption(t.Input) {
		return false, nil
	}
	c := h.deps.Content.Current()
	rowID := rowForInput(c.MainMenu, t.Input)
	if rowID == "" {
		return false, nil
	}
	h.deps.Logger.Debug("numeric_safety_net", "conversation", t.Conversation, "input", t.Input)
	menu := &menuHandler{deps: h.deps, actions: h.actions}
	return menu.dispatchRow(ctx, t, rowID)
}

package router

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/studiobotics/attendant/botengine/config"
	"github.com/studiobotics/attendant/botengine/flow"
	"github.com/studiobotics/attendant/botengine/store"
	"github.com/studiobotics/attendant/connector"
)

// Funnel event names tracked against conversations.
const (
	eventFirstContact = "first_contact"
	eventMenuView     = "menu_view"
	eventQuizStart    = "quiz_start"
	eventQuizComplete = "quiz_complete"
	eventPriceView    = "price_view"
	eventBookingClick = "booking_click"
	eventHumanHandoff = "human_handoff"
)

// Actions are the send-and-transition primitives shared by the handlers.
// Every primitive leaves the flow state consistent with what was sent, so a
// handler never has to pair a send with a state write itself.
type Actions struct {
	deps Deps
}

// ===== STATE =====

func (a *Actions) setState(ctx context.Context, conversation string, state flow.State, data map[string]any) {
	if err := a.deps.Stores.Flow.Set(ctx, conversation, state, data); err != nil {
		a.deps.Logger.Warn("flow_set_failed", "conversation", conversation, "state", state, "error", err)
	}
}

func (a *Actions) clearState(ctx context.Context, conversation string) {
	if err := a.deps.Stores.Flow.Delete(ctx, conversation); err != nil {
		a.deps.Logger.Warn("flow_delete_failed", "conversation", conversation, "error", err)
	}
}

// DisplayName resolves the best name for a lead: stored profile first, the
// channel push name second, the catalog default last.
func (a *Actions) DisplayName(ctx context.Context, t *Turn) string {
	if p, err := a.deps.Stores.Profiles.Get(ctx, t.Conversation); err == nil && p.Name != "" {
		return p.Name
	}
	if t.Name != "" {
		return t.Name
	}
	return a.deps.Content.Current().DefaultLeadName
}

func (a *Actions) track(ctx context.Context, conversation, event string, metadata map[string]any) {
	if err := a.deps.Stores.Funnel.Track(ctx, conversation, event, metadata); err != nil {
		a.deps.Logger.Debug("funnel_track_failed", "event", event, "error", err)
	}
}

func (a *Actions) pause(ctx context.Context) {
	a.deps.Sleep(ctx, a.deps.Cfg.SideEffectDelay)
}

// ===== SENDS =====

// SendMainMenu presents the main menu and moves the conversation to it.
func (a *Actions) SendMainMenu(ctx context.Context, t *Turn) error {
	c := a.deps.Content.Current()
	menu := c.MainMenu
	menu.Prompt = config.Render(menu.Prompt, "name", a.DisplayName(ctx, t))
	if err := a.deps.Messenger.SendList(ctx, t.Conversation, menu); err != nil {
		return err
	}
	a.setState(ctx, t.Conversation, flow.StateMenuMain, nil)
	a.track(ctx, t.Conversation, eventMenuView, nil)
	return nil
}

// SendScheduleList presents the modality picker.
func (a *Actions) SendScheduleList(ctx context.Context, t *Turn) error {
	c := a.deps.Content.Current()
	if err := a.deps.Messenger.SendList(ctx, t.Conversation, c.ScheduleList); err != nil {
		return err
	}
	a.setState(ctx, t.Conversation, flow.StateSelectModality, nil)
	return nil
}

// SendPrices sends the price card, ends the guided flow and arms the
// follow-up ladder: a lead who saw prices and went quiet gets nudged.
func (a *Actions) SendPrices(ctx context.Context, t *Turn) error {
	c := a.deps.Content.Current()
	if err := a.deps.Messenger.SendText(ctx, t.Conversation, c.Prices); err != nil {
		return err
	}
	a.clearState(ctx, t.Conversation)
	a.deps.Reminders.ScheduleAll(ctx, t.Conversation)
	a.track(ctx, t.Conversation, eventPriceView, nil)
	return nil
}

// SendLocationInfo sends the map pin and its caption, then ends the flow.
func (a *Actions) SendLocationInfo(ctx context.Context, t *Turn) error {
	c := a.deps.Content.Current()
	if err := a.deps.Messenger.SendLocation(ctx, t.Conversation, c.Location); err != nil {
		return err
	}
	a.pause(ctx)
	if err := a.deps.Messenger.SendText(ctx, t.Conversation, c.LocationFollow); err != nil {
		return err
	}
	a.clearState(ctx, t.Conversation)
	return nil
}

// SendHandoff acknowledges the request, silences the bot and alerts the
// operators. The mute anchor is the request time.
func (a *Actions) SendHandoff(ctx context.Context, t *Turn) error {
	c := a.deps.Content.Current()
	if err := a.deps.Messenger.SendText(ctx, t.Conversation, c.HandoffAck); err != nil {
		return err
	}
	a.setState(ctx, t.Conversation, flow.StateWaitingForHuman, map[string]any{
		flow.DataTimestamp: a.deps.Now().UnixMilli(),
	})
	a.deps.Reminders.Cancel(ctx, t.Conversation)
	a.deps.Alerter.NotifyHandoff(ctx, connector.Lead{Conversation: t.Conversation, Name: a.DisplayName(ctx, t)})
	if err := a.deps.Labeler.AddLabel(ctx, t.Conversation, "human_handoff"); err != nil {
		a.deps.Logger.Debug("label_failed", "conversation", t.Conversation, "error", err)
	}
	a.track(ctx, t.Conversation, eventHumanHandoff, nil)
	return nil
}

// SendModalityDetails sends one modality's schedule and, after a beat, the
// next-steps list.
func (a *Actions) SendModalityDetails(ctx context.Context, t *Turn, modality string) error {
	c := a.deps.Content.Current()
	details, ok := c.ModalityDetails[modality]
	if !ok {
		details = c.ModalityFallback
	}
	if err := a.deps.Messenger.SendText(ctx, t.Conversation, details); err != nil {
		return err
	}
	a.setState(ctx, t.Conversation, flow.StateViewModalityDetails, map[string]any{
		flow.DataViewing: modality,
	})
	a.pause(ctx)
	return a.deps.Messenger.SendList(ctx, t.Conversation, c.NextSteps)
}

// SendOtherModalities sends the overflow catalog and the next-steps list.
func (a *Actions) SendOtherModalities(ctx context.Context, t *Turn) error {
	c := a.deps.Content.Current()
	if err := a.deps.Messenger.SendText(ctx, t.Conversation, c.OtherModalities); err != nil {
		return err
	}
	a.setState(ctx, t.Conversation, flow.StateViewModalityDetails, map[string]any{
		flow.DataViewing: "outros",
	})
	a.pause(ctx)
	return a.deps.Messenger.SendList(ctx, t.Conversation, c.NextSteps)
}

// StartQuiz opens the profiling quiz.
func (a *Actions) StartQuiz(ctx context.Context, t *Turn) error {
	c := a.deps.Content.Current()
	if err := a.deps.Messenger.SendText(ctx, t.Conversation, c.QuizIntro); err != nil {
		return err
	}
	a.setState(ctx, t.Conversation, flow.StateAskName, nil)
	a.track(ctx, t.Conversation, eventQuizStart, nil)
	if err := a.deps.Labeler.AddLabel(ctx, t.Conversation, "prospect"); err != nil {
		a.deps.Logger.Debug("label_failed", "conversation", t.Conversation, "error", err)
	}
	return nil
}

// SendBookingIntro sends the booking pitch followed by the price card.
func (a *Actions) SendBookingIntro(ctx context.Context, t *Turn) error {
	c := a.deps.Content.Current()
	if err := a.deps.Messenger.SendText(ctx, t.Conversation, c.BookingIntro); err != nil {
		return err
	}
	a.track(ctx, t.Conversation, eventBookingClick, nil)
	a.pause(ctx)
	return a.SendPrices(ctx, t)
}

// ===== LOOKUPS =====

// IdentifyModality finds the modality whose aliases appear in the text.
// Modalities are scanned in name order so overlapping aliases ("jazz funk"
// hits both jazz and street) resolve the same way every time.
func (a *Actions) IdentifyModality(text string) string {
	lower := strings.ToLower(text)
	c := a.deps.Content.Current()
	names := make([]string, 0, len(c.ModalityAliases))
	for modality := range c.ModalityAliases {
		names = append(names, modality)
	}
	sort.Strings(names)
	for _, modality := range names {
		for _, alias := range c.ModalityAliases[modality] {
			if strings.Contains(lower, alias) {
				return modality
			}
		}
	}
	return ""
}

// rowForInput resolves an input against a list: a row ID matches directly,
// and a bare digit selects the nth row. Lists reach leads as numbered text,
// so digit replies are the common case.
func rowForInput(list config.ListMessage, input string) string {
	n := 0
	for _, sec := range list.Sections {
		for _, row := range sec.Rows {
			n++
			if row.ID == input || strconv.Itoa(n) == input {
				return row.ID
			}
		}
	}
	return ""
}

// lastUserQuestion returns the most recent user turn in memory, if any.
func (a *Actions) lastUserQuestion(ctx context.Context, conversation string) string {
	recent, err := a.deps.Stores.Memory.Recent(ctx, conversation, a.deps.Cfg.MemoryWindow)
	if err != nil {
		return ""
	}
	for i := len(recent) - 1; i >= 0; i-- {
		if recent[i].Role == store.RoleUser {
			return recent[i].Text
		}
	}
	return ""
}

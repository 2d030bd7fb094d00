package router

import (
	"context"
	"strings"

	"github.com/studiobotics/attendant/botengine/config"
	"github.com/studiobotics/attendant/botengine/event"
	"github.com/studiobotics/attendant/connector"
)

// ===== SCHEDULE CARD =====

// scheduleLeadHandler catches the prefilled message a lead sends after
// tapping a class card on the public schedule page. The card text names the
// class, so the reply can jump straight to that modality's details.
type scheduleLeadHandler struct {
	deps    Deps
	actions *Actions
}

func (h *scheduleLeadHandler) Name() string { return "schedule_lead" }

func (h *scheduleLeadHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	c := h.deps.Content.Current()
	if !event.ContainsAny(t.Text, c.ScheduleLeadMarkers) {
		return false, nil
	}

	name := h.actions.DisplayName(ctx, t)
	greeting := config.Render(c.ScheduleLeadGreeting, "name", name)
	if err := h.deps.Messenger.SendText(ctx, t.Conversation, greeting); err != nil {
		return true, err
	}

	modality := h.actions.IdentifyModality(t.Text)
	h.deps.Alerter.NotifyLead(ctx, connector.Lead{Conversation: t.Conversation, Name: name}, leadIntent(modality, "Aula experimental"))
	h.actions.track(ctx, t.Conversation, eventFirstContact, map[string]any{"source": "schedule_card"})

	h.actions.pause(ctx)
	if modality == "" {
		return true, h.actions.SendScheduleList(ctx, t)
	}
	return true, h.actions.SendModalityDetails(ctx, t, modality)
}

// ===== SITE FORM =====

// siteLeadHandler catches the relay message generated by the website's
// contact form. The free-text portion after the separator carries whatever
// the visitor wrote, which may or may not name a modality.
type siteLeadHandler struct {
	deps    Deps
	actions *Actions
}

func (h *siteLeadHandler) Name() string { return "site_lead" }

func (h *siteLeadHandler) Handle(ctx context.Context, t *Turn) (bool, error) {
	c := h.deps.Content.Current()
	if c.SiteLeadMarker == "" || !strings.Contains(t.Text, c.SiteLeadMarker) {
		return false, nil
	}

	visitorText := t.Text
	if idx := strings.Index(t.Text, c.SiteMessageSeparator); idx >= 0 {
		visitorText = t.Text[idx+len(c.SiteMessageSeparator):]
	}
	name := h.actions.DisplayName(ctx, t)
	modality := h.actions.IdentifyModality(visitorText)

	h.deps.Alerter.NotifyLead(ctx, connector.Lead{Conversation: t.Conversation, Name: name}, leadIntent(modality, "Contato pelo site"))
	h.actions.track(ctx, t.Conversation, eventFirstContact, map[string]any{"source": "site_form"})

	if modality == "" {
		if err := h.deps.Messenger.SendText(ctx, t.Conversation, c.SiteLeadUnknown); err != nil {
			return true, err
		}
		h.actions.pause(ctx)
		return true, h.actions.SendMainMenu(ctx, t)
	}

	known := config.Render(c.SiteLeadKnown, "name", name, "modality", modality)
	if err := h.deps.Messenger.SendText(ctx, t.Conversation, known); err != nil {
		return true, err
	}
	h.actions.pause(ctx)
	return true, h.actions.SendModalityDetails(ctx, t, modality)
}

func leadIntent(modality, fallback string) string {
	if modality != "" {
		return modality
	}
	return fallback
}

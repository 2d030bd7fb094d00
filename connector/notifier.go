package connector

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/studiobotics/attendant/botengine/config"
)

// Lead identifies the person an alert is about.
type Lead struct {
	Conversation string
	Name         string
}

// Notifier broadcasts alerts to the business operators. Alerts are raw sends
// without typing simulation: operators want them immediately.
type Notifier struct {
	messenger Messenger
	content   *config.ContentProvider
	operators []string
	logger    Logger
}

func NewNotifier(messenger Messenger, content *config.ContentProvider, operators []string, logger Logger) *Notifier {
	return &Notifier{
		messenger: messenger,
		content:   content,
		operators: operators,
		logger:    logger,
	}
}

// NotifyHandoff alerts that a lead asked for a human.
func (n *Notifier) NotifyHandoff(ctx context.Context, lead Lead) {
	c := n.content.Current()
	n.broadcast(ctx, config.Render(c.HandoffAlert, "name", lead.Name)+"\nLink: "+WaLink(lead.Conversation))
}

// NotifyRead alerts that a high-intent lead viewed the booking details.
func (n *Notifier) NotifyRead(ctx context.Context, lead Lead) {
	c := n.content.Current()
	n.broadcast(ctx, config.Render(c.ReadAlert, "name", lead.Name)+"\nLink: "+WaLink(lead.Conversation))
}

// NotifyLead alerts about a new qualified lead with its intent.
func (n *Notifier) NotifyLead(ctx context.Context, lead Lead, intent string) {
	c := n.content.Current()
	text := config.Render(c.LeadAlert, "intent", intent, "name", lead.Name) +
		"\nLink: " + WaLink(lead.Conversation) + "\n\n" + c.AlertCallToAct
	n.broadcast(ctx, text)
}

func (n *Notifier) broadcast(ctx context.Context, text string) {
	alertID := uuid.NewString()
	for _, operator := range n.operators {
		if err := n.messenger.SendText(ctx, operator, text); err != nil {
			n.logger.Warn("operator_alert_failed", "alert_id", alertID, "operator", operator, "error", err)
			continue
		}
	}
	n.logger.Info("operator_alert_sent", "alert_id", alertID, "operators", len(n.operators))
}

// WaLink builds the wa.me link for a conversation JID.
func WaLink(conversation string) string {
	phone := strings.TrimSuffix(conversation, "@s.whatsapp.net")
	phone = strings.TrimSuffix(phone, "@g.us")
	return "https://wa.me/" + phone
}

// Package event defines the inbound webhook envelope and its classification.
//
// The upstream channel posts a tagged union keyed by an "event" field. Only
// four kinds are meaningful to the orchestrator; everything else is
// acknowledged and ignored. Payload decoding is tolerant: missing fields
// yield zero values, and the orchestrator decides whether a zero value makes
// the event droppable.
package event

import (
	"encoding/json"
	"strings"
)

// Kind classifies an inbound envelope.
type Kind string

const (
	KindMessageUpsert  Kind = "messages.upsert"
	KindMessageUpdate  Kind = "messages.update"
	KindCall           Kind = "call"
	KindPresenceUpdate Kind = "presence.update"
	KindUnknown        Kind = "unknown"
)

// Envelope is the raw webhook body. Data stays raw until the kind is known.
type Envelope struct {
	Event        string          `json:"event"`
	InstanceData *InstanceData   `json:"instanceData,omitempty"`
	Data         json.RawMessage `json:"data"`
}

// InstanceData carries channel-account metadata attached by the upstream.
type InstanceData struct {
	User string `json:"user,omitempty"`
}

// Classify maps the envelope's event tag to a Kind. Both the dotted and the
// underscored spellings are accepted, as the upstream emits either depending
// on its version.
func (e *Envelope) Classify() Kind {
	switch strings.ToLower(strings.TrimSpace(e.Event)) {
	case "messages.upsert", "messages_upsert":
		return KindMessageUpsert
	case "messages.update", "messages_update":
		return KindMessageUpdate
	case "call":
		return KindCall
	case "presence.update", "presence_update":
		return KindPresenceUpdate
	}
	return KindUnknown
}

// MessageKey identifies a message within its conversation.
type MessageKey struct {
	ID        string `json:"id"`
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
}

// Message is the payload of a messages.upsert event.
type Message struct {
	Key      MessageKey      `json:"key"`
	PushName string          `json:"pushName,omitempty"`
	Message  *MessageContent `json:"message,omitempty"`
}

// MessageContent is the union of content shapes a message may carry.
type MessageContent struct {
	Conversation     string            `json:"conversation,omitempty"`
	ExtendedText     *ExtendedText     `json:"extendedTextMessage,omitempty"`
	ButtonsResponse  *ButtonsResponse  `json:"buttonsResponseMessage,omitempty"`
	ListResponse     *ListResponse     `json:"listResponseMessage,omitempty"`
	Audio            *AudioMessage     `json:"audioMessage,omitempty"`
}

type ExtendedText struct {
	Text string `json:"text"`
}

type ButtonsResponse struct {
	SelectedDisplayText string `json:"selectedDisplayText"`
}

type ListResponse struct {
	Title             string             `json:"title"`
	SingleSelectReply *SingleSelectReply `json:"singleSelectReply,omitempty"`
}

type SingleSelectReply struct {
	SelectedRowID string `json:"selectedRowId"`
}

// StatusUpdate is the payload of a messages.update event.
type StatusUpdate struct {
	Key    MessageKey `json:"key"`
	Status string     `json:"status"`
}

// AudioMessage marks a voice note; its media fields are irrelevant here.
type AudioMessage struct {
	Seconds int `json:"seconds,omitempty"`
}

// Call is the payload of a call event.
type Call struct {
	ID   string `json:"id"`
	From string `json:"from,omitempty"`
}

// Caller returns the calling address, whichever field the upstream used.
func (c *Call) Caller() string {
	if c.ID != "" {
		return c.ID
	}
	return c.From
}

// PresenceUpdate is the payload of a presence.update event.
type PresenceUpdate struct {
	Presences map[string]Presence `json:"presences,omitempty"`
}

type Presence struct {
	LastKnownPresence string `json:"lastKnownPresence"`
}

// DecodeMessage decodes a messages.upsert payload.
func (e *Envelope) DecodeMessage() (*Message, error) {
	var m Message
	if err := json.Unmarshal(e.Data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeStatusUpdate decodes a messages.update payload.
func (e *Envelope) DecodeStatusUpdate() (*StatusUpdate, error) {
	var u StatusUpdate
	if err := json.Unmarshal(e.Data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DecodeCall decodes a call payload.
func (e *Envelope) DecodeCall() (*Call, error) {
	var c Call
	if err := json.Unmarshal(e.Data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DecodePresence decodes a presence.update payload.
func (e *Envelope) DecodePresence() (*PresenceUpdate, error) {
	var p PresenceUpdate
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Text extracts the human-readable text of a message, trying each content
// shape in a fixed order: plain conversation, extended text, button reply
// display text, list reply title.
func (m *Message) Text() string {
	if m == nil || m.Message == nil {
		return ""
	}
	c := m.Message
	switch {
	case c.Conversation != "":
		return c.Conversation
	case c.ExtendedText != nil && c.ExtendedText.Text != "":
		return c.ExtendedText.Text
	case c.ButtonsResponse != nil && c.ButtonsResponse.SelectedDisplayText != "":
		return c.ButtonsResponse.SelectedDisplayText
	case c.ListResponse != nil && c.ListResponse.Title != "":
		return c.ListResponse.Title
	}
	return ""
}

// RowID returns the structured list-selection id, if any. Structured ids take
// priority over free text when normalizing input.
func (m *Message) RowID() string {
	if m == nil || m.Message == nil || m.Message.ListResponse == nil ||
		m.Message.ListResponse.SingleSelectReply == nil {
		return ""
	}
	return m.Message.ListResponse.SingleSelectReply.SelectedRowID
}

// HasAudio reports whether the message carries a voice note.
func (m *Message) HasAudio() bool {
	return m != nil && m.Message != nil && m.Message.Audio != nil
}

// NormalizedInput returns the routing input for a message: the selected row
// id when present, otherwise the trimmed lowercased text.
func (m *Message) NormalizedInput() string {
	if id := m.RowID(); id != "" {
		return strings.ToLower(strings.TrimSpace(id))
	}
	return strings.ToLower(strings.TrimSpace(m.Text()))
}

// IsGroup reports whether an address belongs to a group chat. Group traffic
// is never automated.
func IsGroup(address string) bool {
	return strings.Contains(address, "@g.us")
}

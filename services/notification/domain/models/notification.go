package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel is a delivery channel for outbound notifications.
type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelPush     Channel = "PUSH"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush:
		return true
	}
	return false
}

// Priority orders delivery when providers support it.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
)

// Notification is one outbound message. Delivery itself rides the event bus
// (notification.requested → provider → notification.sent) so every send is
// auditable and retryable like any other event.
type Notification struct {
	ID          uuid.UUID         `json:"id"`
	Channel     Channel           `json:"channel"`
	RecipientID uuid.UUID         `json:"recipient_id"`
	TenantID    string            `json:"tenant_id"`
	Priority    Priority          `json:"priority"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewNotification builds a validated notification with defaults applied.
func NewNotification(channel Channel, recipientID uuid.UUID, tenantID, subject, body string) (*Notification, error) {
	if !channel.Valid() {
		return nil, fmt.Errorf("unknown notification channel %q", channel)
	}
	if recipientID == uuid.Nil {
		return nil, fmt.Errorf("notification recipient must be set")
	}
	return &Notification{
		ID:          uuid.New(),
		Channel:     channel,
		RecipientID: recipientID,
		TenantID:    tenantID,
		Priority:    PriorityNormal,
		Subject:     subject,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ChannelConfig is the per-tenant provider selection for one channel.
type ChannelConfig struct {
	TenantID string
	Channel  Channel
	Provider string
	Sender   string
	Enabled  bool
}

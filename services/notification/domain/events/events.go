// Package events defines the notification context's topics and payloads.
// Requested/sent pairs make delivery independently auditable: a failed
// delivery is retried and dead-lettered by the bus like any other event.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/services/notification/domain/models"
)

// AggregateType for notification-context envelopes. Envelopes are keyed by
// the notification ID so unrelated deliveries run concurrently.
const AggregateType = "notification"

const (
	TopicNotificationRequested = "notification.requested"
	TopicNotificationSent      = "notification.sent"
)

// NotificationRequestedEvent carries the full notification to deliver.
type NotificationRequestedEvent struct {
	Notification models.Notification `json:"notification"`
}

// NotificationSentEvent confirms provider hand-off.
type NotificationSentEvent struct {
	NotificationID uuid.UUID      `json:"notification_id"`
	Channel        models.Channel `json:"channel"`
	Provider       string         `json:"provider"`
	TenantID       string         `json:"tenant_id"`
	RecipientID    uuid.UUID      `json:"recipient_id"`
	SentAt         time.Time      `json:"sent_at"`
}

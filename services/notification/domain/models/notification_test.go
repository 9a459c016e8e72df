package models

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewNotificationDefaults(t *testing.T) {
	recipient := uuid.New()
	n, err := NewNotification(ChannelEmail, recipient, "campus-a", "subject", "body")
	if err != nil {
		t.Fatalf("NewNotification: %v", err)
	}
	if n.ID == uuid.Nil {
		t.Error("expected generated ID")
	}
	if n.Priority != PriorityNormal {
		t.Errorf("priority = %s, want %s", n.Priority, PriorityNormal)
	}
	if n.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if n.RecipientID != recipient || n.TenantID != "campus-a" {
		t.Errorf("recipient/tenant not carried: %+v", n)
	}
}

func TestNewNotificationRejectsUnknownChannel(t *testing.T) {
	if _, err := NewNotification(Channel("CARRIER_PIGEON"), uuid.New(), "campus-a", "s", "b"); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}

func TestNewNotificationRequiresRecipient(t *testing.T) {
	if _, err := NewNotification(ChannelSMS, uuid.Nil, "campus-a", "s", "b"); err == nil {
		t.Fatal("expected error for nil recipient")
	}
}

func TestChannelValid(t *testing.T) {
	for _, ch := range []Channel{ChannelEmail, ChannelSMS, ChannelWhatsApp, ChannelPush} {
		if !ch.Valid() {
			t.Errorf("%s should be valid", ch)
		}
	}
	if Channel("email").Valid() {
		t.Error("channel names are case sensitive")
	}
}

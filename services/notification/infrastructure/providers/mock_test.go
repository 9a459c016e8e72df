package providers

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/ghuser/campusreserve/pkg/config"
	"github.com/ghuser/campusreserve/pkg/logger"
	"github.com/ghuser/campusreserve/services/notification/domain/models"
	domainproviders "github.com/ghuser/campusreserve/services/notification/domain/providers"
)

func newTestLogger() logger.Logger {
	return logger.New(&config.Config{LogLevel: "error"})
}

func TestRegistryResolvesMockPerChannel(t *testing.T) {
	reg := NewRegistry().WithMocks(newTestLogger())

	for _, ch := range []models.Channel{
		models.ChannelEmail, models.ChannelSMS, models.ChannelWhatsApp, models.ChannelPush,
	} {
		p, err := reg.Resolve(ch, MockName)
		if err != nil {
			t.Fatalf("Resolve(%s, mock): %v", ch, err)
		}
		if p.Name() != MockName {
			t.Errorf("provider name = %s, want %s", p.Name(), MockName)
		}
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	reg := NewRegistry().WithMocks(newTestLogger())

	if _, err := reg.Resolve(models.ChannelEmail, "twilio"); !errors.Is(err, domainproviders.ErrProviderNotFound) {
		t.Fatalf("err = %v, want ErrProviderNotFound", err)
	}
	if _, err := reg.Resolve(models.Channel("FAX"), MockName); !errors.Is(err, domainproviders.ErrProviderNotFound) {
		t.Fatalf("err = %v, want ErrProviderNotFound", err)
	}
}

func TestMockProviderSends(t *testing.T) {
	p := NewMockProvider(models.ChannelPush, newTestLogger())
	n, err := models.NewNotification(models.ChannelPush, uuid.New(), "campus-a", "s", "b")
	if err != nil {
		t.Fatalf("NewNotification: %v", err)
	}
	if err := p.Send(context.Background(), "no-reply@example.edu", *n); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

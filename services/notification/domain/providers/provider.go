// Package providers defines the delivery provider abstraction. Concrete
// providers (mock today, ESP/SMS gateways later) live in infrastructure.
package providers

import (
	"context"
	"errors"

	"github.com/ghuser/campusreserve/services/notification/domain/models"
)

// ErrProviderNotFound is returned when a tenant config names a provider that
// is not registered for the channel.
var ErrProviderNotFound = errors.New("notification provider not found")

// Provider delivers a notification over one channel. Send must be safe to
// retry: the dispatcher dedupes by event ID but redelivery can still occur
// across process crashes.
type Provider interface {
	Name() string
	Send(ctx context.Context, sender string, n models.Notification) error
}

// Package providers holds concrete notification providers and the registry
// that resolves them from tenant configuration.
package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ghuser/campusreserve/pkg/logger"
	"github.com/ghuser/campusreserve/services/notification/domain/models"
	domainproviders "github.com/ghuser/campusreserve/services/notification/domain/providers"
)

// MockName is the provider name selected when a tenant has no real gateway
// configured.
const MockName = "mock"

// MockProvider logs deliveries instead of calling a gateway. One instance
// serves one channel.
type MockProvider struct {
	channel models.Channel
	log     logger.Logger
}

var _ domainproviders.Provider = (*MockProvider)(nil)

func NewMockProvider(channel models.Channel, log logger.Logger) *MockProvider {
	return &MockProvider{channel: channel, log: log}
}

func (p *MockProvider) Name() string { return MockName }

func (p *MockProvider) Send(ctx context.Context, sender string, n models.Notification) error {
	p.log.InfoContext(ctx, "mock notification delivered",
		"notification_id", n.ID,
		"channel", p.channel,
		"recipient_id", n.RecipientID,
		"tenant_id", n.TenantID,
		"sender", sender,
		"subject", n.Subject,
	)
	return nil
}

// Registry resolves providers by (channel, provider name).
type Registry struct {
	mu        sync.RWMutex
	providers map[string]domainproviders.Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]domainproviders.Provider)}
}

// WithMocks registers the mock provider for every channel.
func (r *Registry) WithMocks(log logger.Logger) *Registry {
	for _, ch := range []models.Channel{
		models.ChannelEmail, models.ChannelSMS, models.ChannelWhatsApp, models.ChannelPush,
	} {
		r.Register(ch, NewMockProvider(ch, log))
	}
	return r
}

func (r *Registry) Register(channel models.Channel, p domainproviders.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[key(channel, p.Name())] = p
}

// Resolve returns the provider registered for the channel under the given
// name, or ErrProviderNotFound.
func (r *Registry) Resolve(channel models.Channel, name string) (domainproviders.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[key(channel, name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domainproviders.ErrProviderNotFound, channel, name)
	}
	return p, nil
}

func key(channel models.Channel, name string) string {
	return string(channel) + "/" + name
}

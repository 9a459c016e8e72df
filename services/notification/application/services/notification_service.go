package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgevents "github.com/ghuser/campusreserve/pkg/events"
	"github.com/ghuser/campusreserve/pkg/idempotency"
	"github.com/ghuser/campusreserve/pkg/logger"
	approvalevents "github.com/ghuser/campusreserve/services/approval/domain/events"
	domainevents "github.com/ghuser/campusreserve/services/notification/domain/events"
	"github.com/ghuser/campusreserve/services/notification/domain/models"
	domainproviders "github.com/ghuser/campusreserve/services/notification/domain/providers"
	"github.com/ghuser/campusreserve/services/notification/domain/repositories"
	reassignevents "github.com/ghuser/campusreserve/services/reassignment/domain/events"
)

// DefaultSender is used when a tenant has not configured a channel.
const DefaultSender = "no-reply@campusreserve.edu"

// ProviderResolver selects the delivery provider for a channel by name.
type ProviderResolver interface {
	Resolve(channel models.Channel, name string) (domainproviders.Provider, error)
}

// NotificationService dispatches notifications through the event bus.
// Send publishes notification.requested; the worker-side consumer performs
// the provider delivery and publishes notification.sent, so failed deliveries
// ride the bus retry and dead-letter machinery instead of a bespoke loop.
type NotificationService struct {
	bus       *pkgevents.EventBus
	providers ProviderResolver
	tenants   repositories.TenantConfigRepository
	idem      *idempotency.Store
	log       logger.Logger
}

func NewNotificationService(
	bus *pkgevents.EventBus,
	providers ProviderResolver,
	tenants repositories.TenantConfigRepository,
	idem *idempotency.Store,
	log logger.Logger,
) *NotificationService {
	return &NotificationService{bus: bus, providers: providers, tenants: tenants, idem: idem, log: log}
}

// Send queues one notification for delivery.
func (s *NotificationService) Send(ctx context.Context, n *models.Notification) error {
	entry, err := requestedEntry(n)
	if err != nil {
		return err
	}
	if err := s.bus.Publish(ctx, entry.Topic, entry.Envelope); err != nil {
		return fmt.Errorf("queue notification %s: %w", n.ID, err)
	}
	return nil
}

// SendBatch queues a batch, reporting every entry that failed to queue.
func (s *NotificationService) SendBatch(ctx context.Context, batch []models.Notification) error {
	entries := make([]pkgevents.BatchEntry, 0, len(batch))
	for i := range batch {
		entry, err := requestedEntry(&batch[i])
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	var errs []error
	for _, result := range s.bus.PublishBatch(ctx, entries) {
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", result.Index, result.Topic, result.Err))
		}
	}
	return errors.Join(errs...)
}

// SetTenantConfig upserts the tenant's provider selection for one channel.
func (s *NotificationService) SetTenantConfig(ctx context.Context, cfg *models.ChannelConfig) error {
	return s.tenants.Set(ctx, cfg)
}

// HandleNotificationRequested is the worker-side consumer: it resolves the
// tenant's provider, delivers, and publishes notification.sent. Delivery is
// deduped by event ID, so bus redelivery cannot double-send.
func (s *NotificationService) HandleNotificationRequested(ctx context.Context, env *pkgevents.Envelope) error {
	var evt domainevents.NotificationRequestedEvent
	if err := env.DecodeData(&evt); err != nil {
		return err
	}
	n := evt.Notification

	_, replayed, err := s.idem.Execute(ctx, "notify:"+env.EventID.String(), func(ctx context.Context) ([]byte, error) {
		if err := s.deliver(ctx, n); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{"notification_id": n.ID.String()})
	})
	if err != nil {
		return err
	}
	if replayed {
		s.log.InfoContext(ctx, "duplicate notification delivery suppressed",
			"notification_id", n.ID, "event_id", env.EventID)
	}
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, n models.Notification) error {
	cfg, err := s.tenants.Get(ctx, n.TenantID, n.Channel)
	if err != nil {
		return err
	}
	providerName, sender := "mock", DefaultSender
	if cfg != nil {
		if !cfg.Enabled {
			s.log.InfoContext(ctx, "channel disabled for tenant, dropping notification",
				"notification_id", n.ID, "tenant_id", n.TenantID, "channel", n.Channel)
			return nil
		}
		providerName, sender = cfg.Provider, cfg.Sender
	}

	provider, err := s.providers.Resolve(n.Channel, providerName)
	if err != nil {
		return err
	}
	if err := provider.Send(ctx, sender, n); err != nil {
		return fmt.Errorf("deliver %s via %s: %w", n.ID, provider.Name(), err)
	}

	sent, err := pkgevents.NewEnvelope(domainevents.TopicNotificationSent, domainevents.AggregateType,
		n.ID.String(), domainevents.NotificationSentEvent{
			NotificationID: n.ID,
			Channel:        n.Channel,
			Provider:       provider.Name(),
			TenantID:       n.TenantID,
			RecipientID:    n.RecipientID,
			SentAt:         time.Now().UTC(),
		})
	if err != nil {
		return err
	}
	return s.bus.Publish(ctx, domainevents.TopicNotificationSent, sent)
}

// HandleApprovalRequestCreated notifies every approver on the hook for a new
// request.
func (s *NotificationService) HandleApprovalRequestCreated(ctx context.Context, env *pkgevents.Envelope) error {
	var evt approvalevents.ApprovalRequestCreatedEvent
	if err := env.DecodeData(&evt); err != nil {
		return err
	}
	return s.fanOut(ctx, models.ChannelPush, evt.ApproverIDs, evt.TenantID,
		"Approval needed",
		fmt.Sprintf("Reservation %s awaits your decision in step %q until %s.",
			evt.ReservationID, evt.StepName, evt.TimeoutAt.Format(time.RFC3339)))
}

// HandleApprovalReminder nudges the pending approvers.
func (s *NotificationService) HandleApprovalReminder(ctx context.Context, env *pkgevents.Envelope) error {
	var evt approvalevents.ApprovalReminderEvent
	if err := env.DecodeData(&evt); err != nil {
		return err
	}
	return s.fanOut(ctx, models.ChannelPush, evt.ApproverIDs, evt.TenantID,
		fmt.Sprintf("%s reminder: approval pending", evt.ReminderType),
		fmt.Sprintf("Reservation %s is still awaiting your decision (deadline %s).",
			evt.ReservationID, evt.TimeoutAt.Format(time.RFC3339)))
}

// HandleApprovalCompleted tells the requester how the flow ended.
func (s *NotificationService) HandleApprovalCompleted(ctx context.Context, env *pkgevents.Envelope) error {
	var evt approvalevents.ApprovalCompletedEvent
	if err := env.DecodeData(&evt); err != nil {
		return err
	}
	n, err := models.NewNotification(models.ChannelEmail, evt.RequesterID, evt.TenantID,
		fmt.Sprintf("Reservation %s: %s", evt.ReservationID, evt.Status),
		fmt.Sprintf("Your reservation %s finished approval with status %s at %s.",
			evt.ReservationID, evt.Status, evt.CompletedAt.Format(time.RFC3339)))
	if err != nil {
		return err
	}
	return s.Send(ctx, n)
}

// HandleReassignmentCreated tells the requester alternatives are ready.
func (s *NotificationService) HandleReassignmentCreated(ctx context.Context, env *pkgevents.Envelope) error {
	var evt reassignevents.ReassignmentCreatedEvent
	if err := env.DecodeData(&evt); err != nil {
		return err
	}
	body := fmt.Sprintf("We found %d alternative resources for reservation %s.",
		len(evt.Alternatives), evt.ReservationID)
	if evt.BestAlternative == nil {
		body = fmt.Sprintf("No available alternative was found for reservation %s; the listed options explain why.",
			evt.ReservationID)
	}
	n, err := models.NewNotification(models.ChannelEmail, evt.RequesterID, evt.TenantID,
		"Alternative resources proposed", body)
	if err != nil {
		return err
	}
	return s.Send(ctx, n)
}

func (s *NotificationService) fanOut(ctx context.Context, channel models.Channel, recipients []uuid.UUID, tenantID, subject, body string) error {
	batch := make([]models.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		n, err := models.NewNotification(channel, recipient, tenantID, subject, body)
		if err != nil {
			return err
		}
		batch = append(batch, *n)
	}
	return s.SendBatch(ctx, batch)
}

func requestedEntry(n *models.Notification) (pkgevents.BatchEntry, error) {
	if !n.Channel.Valid() {
		return pkgevents.BatchEntry{}, fmt.Errorf("unknown notification channel %q", n.Channel)
	}
	env, err := pkgevents.NewEnvelope(domainevents.TopicNotificationRequested, domainevents.AggregateType,
		n.ID.String(), domainevents.NotificationRequestedEvent{Notification: *n})
	if err != nil {
		return pkgevents.BatchEntry{}, err
	}
	return pkgevents.BatchEntry{Topic: domainevents.TopicNotificationRequested, Envelope: env}, nil
}

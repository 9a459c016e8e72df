package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.temporal.io/sdk/worker"

	"github.com/ghuser/campusreserve/pkg/app"
	"github.com/ghuser/campusreserve/pkg/cache"
	"github.com/ghuser/campusreserve/pkg/config"
	"github.com/ghuser/campusreserve/pkg/database"
	"github.com/ghuser/campusreserve/pkg/events"
	"github.com/ghuser/campusreserve/pkg/logger"
	"github.com/ghuser/campusreserve/pkg/telemetry"
	"github.com/ghuser/campusreserve/pkg/workflows"
	approvalsvcs "github.com/ghuser/campusreserve/services/approval/application/services"
	approvalwf "github.com/ghuser/campusreserve/services/approval/application/workflows"
	approvalevents "github.com/ghuser/campusreserve/services/approval/domain/events"
	approvalmodels "github.com/ghuser/campusreserve/services/approval/domain/models"
	dlqsvcs "github.com/ghuser/campusreserve/services/dlq/application/services"
	notificationsvcs "github.com/ghuser/campusreserve/services/notification/application/services"
	notificationevents "github.com/ghuser/campusreserve/services/notification/domain/events"
	reassignsvcs "github.com/ghuser/campusreserve/services/reassignment/application/services"
	reassignevents "github.com/ghuser/campusreserve/services/reassignment/domain/events"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)

	ctx := context.Background()

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Error("failed to setup otel", "error", err)
		os.Exit(1)
	}
	defer otelShutdown(ctx) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer pool.Close()
	log.Info("database pool connected")

	eventBus, err := events.NewEventBus(cfg, log)
	if err != nil {
		log.Error("failed to setup event bus", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer eventBus.Close() //nolint:errcheck

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("redis connected")

	temporalClient, err := workflows.NewTemporalClient(ctx, cfg.TemporalHostPort, cfg.TemporalNamespace, log)
	if err != nil {
		log.Error("failed to initialize temporal client", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer temporalClient.Close()

	appConfig := &app.Application{
		Cfg:            cfg,
		Db:             pool,
		Logger:         log,
		EventBus:       eventBus,
		Redis:          redisClient,
		TemporalClient: temporalClient,
	}

	// The dead-letter service captures poison messages for every topic this
	// worker consumes, so it must be installed before any Subscribe call.
	dlq := dlqsvcs.New(appConfig)
	eventBus.SetDeadLetterSink(dlq.DLQ)

	scheduler := approvalwf.NewTemporalScheduler(temporalClient, cfg.TemporalTaskQueue, log)
	approval := approvalsvcs.New(appConfig, scheduler)
	reassignment := reassignsvcs.New(appConfig)
	notification := notificationsvcs.New(appConfig)

	if err := registerSubscribers(ctx, appConfig, approval, reassignment, notification); err != nil {
		log.Error("failed to register subscribers", "error", err)
		os.Exit(1) //nolint:gocritic
	}

	w := worker.New(temporalClient.Client, cfg.TemporalTaskQueue, worker.Options{})
	w.RegisterWorkflow(approvalwf.ApprovalTimers)
	w.RegisterActivity(approvalwf.NewActivities(approval.Approval))
	if err := w.Start(); err != nil {
		log.Error("failed to start temporal worker", "error", err)
		os.Exit(1) //nolint:gocritic
	}
	defer w.Stop()
	log.Info("temporal worker started", "task_queue", cfg.TemporalTaskQueue)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	// EventBus.Close() (via defer) waits up to 30s for in-flight handlers.
	log.Info("worker stopped")
}

// registerSubscribers wires every consumed topic to its handler. Handlers must
// be idempotent: the bus redelivers on failure and retries up to
// EVENT_MAX_ATTEMPTS before quarantining to the dead-letter queue.
func registerSubscribers(
	ctx context.Context,
	a *app.Application,
	approval *approvalsvcs.Services,
	reassignment *reassignsvcs.Services,
	notification *notificationsvcs.Services,
) error {
	subs := []struct {
		topic   string
		group   string
		handler events.Handler
	}{
		// Reservation lifecycle drives the approval state machine.
		{approvalevents.TopicReservationSubmitted, "approval-consumer", approval.Approval.HandleReservationSubmitted},
		{approvalevents.TopicReservationApproved, "approval-consumer", func(ctx context.Context, env *events.Envelope) error {
			return approval.Approval.HandleDecision(ctx, env, approvalmodels.DecisionApprove)
		}},
		{approvalevents.TopicReservationRejected, "approval-consumer", func(ctx context.Context, env *events.Envelope) error {
			return approval.Approval.HandleDecision(ctx, env, approvalmodels.DecisionReject)
		}},
		{approvalevents.TopicReservationCancelled, "approval-consumer", approval.Approval.HandleReservationCancelled},

		// Conflicted reservations get alternatives proposed.
		{reassignevents.TopicReassignmentNeeded, "reassignment-consumer", reassignment.Reassignment.HandleReassignmentNeeded},

		// Notification fan-out and delivery.
		{notificationevents.TopicNotificationRequested, "notification-consumer", notification.Notification.HandleNotificationRequested},
		{approvalevents.TopicApprovalRequestCreated, "notification-consumer", notification.Notification.HandleApprovalRequestCreated},
		{approvalevents.TopicApprovalReminder, "notification-consumer", notification.Notification.HandleApprovalReminder},
		{approvalevents.TopicApprovalCompleted, "notification-consumer", notification.Notification.HandleApprovalCompleted},
		{reassignevents.TopicReassignmentCreated, "notification-consumer", notification.Notification.HandleReassignmentCreated},
	}

	topics := make([]string, 0, len(subs))
	for _, s := range subs {
		if err := a.EventBus.Subscribe(ctx, s.topic, s.group, s.handler); err != nil {
			return err
		}
		topics = append(topics, s.topic)
	}

	a.Logger.Info("event subscribers registered", "topics", topics)
	return nil
}

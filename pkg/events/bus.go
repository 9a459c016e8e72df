// Package events provides the PostgreSQL-backed pub/sub EventBus built on
// Watermill that connects the workflow services.
//
// Delivery semantics:
//   - at-least-once: handlers MUST be idempotent (see pkg/idempotency).
//   - per-aggregate ordering: messages sharing an AggregateID are handled
//     sequentially in publish order; unrelated aggregates run concurrently.
//   - a handler that keeps failing is retried with exponential backoff up to
//     EventMaxAttempts, then the message is handed to the DeadLetterSink and
//     acked, so a poison message never blocks the rest of its topic.
//
// OTel trace context is injected into message metadata on Publish and
// extracted in Subscribe, enabling end-to-end distributed tracing.
package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ghuser/campusreserve/pkg/config"
	"github.com/ghuser/campusreserve/pkg/logger"
)

const (
	shutdownTimeout = 30 * time.Second
	forwarderTopic  = "_forwarder_queue" // internal outbox topic for the Forwarder daemon
)

// ErrBusClosed is returned by operations on a closed EventBus.
var ErrBusClosed = errors.New("events: bus closed")

// PublishError wraps a broker failure during Publish. It is transient:
// callers may retry the publish.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("events: publish to %s: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Handler processes one decoded envelope. Returning an error triggers the
// retry/dead-letter machinery.
type Handler func(ctx context.Context, env *Envelope) error

// BatchEntry pairs a topic with an envelope for PublishBatch.
type BatchEntry struct {
	Topic    string
	Envelope *Envelope
}

// BatchResult reports the outcome of one PublishBatch entry. Err is nil for
// entries that were durably queued.
type BatchResult struct {
	Index int
	Topic string
	Err   error
}

type subscription struct {
	cancel     context.CancelFunc
	subscriber *watermillsql.Subscriber
	done       chan struct{}
}

// EventBus is a PostgreSQL-backed pub/sub bus built on Watermill's SQL
// transport (FOR UPDATE SKIP LOCKED under the hood).
type EventBus struct {
	cfg       *config.Config
	publisher message.Publisher
	db        *sql.DB
	log       logger.Logger

	mu     sync.Mutex
	subs   map[string]*subscription
	dlq    DeadLetterSink
	fwd    *forwarder.Forwarder
	closed bool

	wg           sync.WaitGroup
	useForwarder bool
}

// NewEventBus opens a database connection from cfg.DatabaseURL and initializes
// a Watermill SQL publisher. Schema tables are created automatically on first
// use.
func NewEventBus(cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return newEventBus(cfg, log, false)
}

// NewEventBusWithForwarder creates an EventBus whose Publish writes messages
// to a durable SQL queue; the Forwarder daemon (started with StartForwarder)
// asynchronously forwards them to the target topic. This guarantees no event
// loss if the process crashes after Publish returns.
func NewEventBusWithForwarder(cfg *config.Config, log logger.Logger) (*EventBus, error) {
	return newEventBus(cfg, log, true)
}

func newEventBus(cfg *config.Config, log logger.Logger, useForwarder bool) (*EventBus, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("events: open db: %w", err)
	}

	wlog := &slogAdapter{log: log}

	pub, err := watermillsql.NewPublisher(
		db,
		watermillsql.PublisherConfig{
			SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: true,
		},
		wlog,
	)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("events: new publisher: %w", err)
	}

	var publisher message.Publisher = pub
	if useForwarder {
		publisher = forwarder.NewPublisher(pub, forwarder.PublisherConfig{
			ForwarderTopic: forwarderTopic,
		})
	}

	return &EventBus{
		cfg:          cfg,
		publisher:    publisher,
		db:           db,
		log:          log,
		subs:         make(map[string]*subscription),
		useForwarder: useForwarder,
	}, nil
}

// SetDeadLetterSink installs the sink that captures poison messages.
// Must be called before Subscribe. Without a sink, exhausted messages are
// Nacked and redelivered indefinitely.
func (q *EventBus) SetDeadLetterSink(sink DeadLetterSink) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dlq = sink
}

// BrokerType reports the configured transport ("postgres").
func (q *EventBus) BrokerType() string {
	return q.cfg.BrokerType
}

// StartForwarder starts the background daemon that drains the internal
// forwarder queue and publishes messages to their target topics. Must only be
// called once, on a bus created with NewEventBusWithForwarder.
func (q *EventBus) StartForwarder(ctx context.Context) error {
	if !q.useForwarder {
		return fmt.Errorf("events: StartForwarder called on non-forwarder EventBus")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fwd != nil {
		return fmt.Errorf("events: forwarder already started")
	}

	wlog := &slogAdapter{log: q.log}

	fwdSub, err := watermillsql.NewSubscriber(
		q.db,
		watermillsql.SubscriberConfig{
			SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
			ConsumerGroup:    "forwarder-consumer",
		},
		wlog,
	)
	if err != nil {
		return fmt.Errorf("events: new forwarder subscriber: %w", err)
	}

	targetPub, err := watermillsql.NewPublisher(
		q.db,
		watermillsql.PublisherConfig{
			SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: true,
		},
		wlog,
	)
	if err != nil {
		_ = fwdSub.Close()
		return fmt.Errorf("events: new forwarder target publisher: %w", err)
	}

	fwd, err := forwarder.NewForwarder(fwdSub, targetPub, wlog, forwarder.Config{
		ForwarderTopic: forwarderTopic,
	})
	if err != nil {
		_ = targetPub.Close()
		_ = fwdSub.Close()
		return fmt.Errorf("events: create forwarder: %w", err)
	}

	q.fwd = fwd

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.log.InfoContext(ctx, "events: forwarder started")
		if err := fwd.Run(ctx); err != nil {
			q.log.ErrorContext(ctx, "events: forwarder stopped with error", "error", err)
		}
	}()

	select {
	case <-fwd.Running():
	case <-ctx.Done():
		return fmt.Errorf("events: context cancelled waiting for forwarder: %w", ctx.Err())
	}
	return nil
}

// NewTxPublisher returns a Publisher bound to the given *sql.Tx so events are
// queued atomically with business writes ("save state + publish event").
func (q *EventBus) NewTxPublisher(tx *sql.Tx) (message.Publisher, error) {
	wlog := &slogAdapter{log: q.log}
	pub, err := watermillsql.NewPublisher(
		tx,
		watermillsql.PublisherConfig{
			SchemaAdapter:        watermillsql.DefaultPostgreSQLSchema{},
			AutoInitializeSchema: false,
		},
		wlog,
	)
	if err != nil {
		return nil, fmt.Errorf("events: new tx publisher: %w", err)
	}
	if q.useForwarder {
		return forwarder.NewPublisher(pub, forwarder.PublisherConfig{
			ForwarderTopic: forwarderTopic,
		}), nil
	}
	return pub, nil
}

// PublishTx publishes env on topic within the given transaction.
func (q *EventBus) PublishTx(tx *sql.Tx, topic string, env *Envelope) error {
	msg, err := env.toMessage()
	if err != nil {
		return err
	}
	pub, err := q.NewTxPublisher(tx)
	if err != nil {
		return err
	}
	if err := pub.Publish(topic, msg); err != nil {
		return &PublishError{Topic: topic, Err: err}
	}
	return nil
}

// Publish durably queues env on topic, returning a retryable *PublishError on
// broker failure. OTel trace context from ctx is injected into the message
// metadata so subscribers can continue the span tree.
func (q *EventBus) Publish(ctx context.Context, topic string, env *Envelope) error {
	msg, err := env.toMessage()
	if err != nil {
		return err
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		msg.Metadata.Set(k, v)
	}

	if err := q.publisher.Publish(topic, msg); err != nil { //nolint:contextcheck
		return &PublishError{Topic: topic, Err: err}
	}
	return nil
}

// PublishBatch publishes each entry independently and reports a per-item
// outcome. The caller decides whether a partial failure fails the whole batch.
func (q *EventBus) PublishBatch(ctx context.Context, entries []BatchEntry) []BatchResult {
	results := make([]BatchResult, len(entries))
	for i, entry := range entries {
		results[i] = BatchResult{
			Index: i,
			Topic: entry.Topic,
			Err:   q.Publish(ctx, entry.Topic, entry.Envelope),
		}
	}
	return results
}

// Subscribe registers handler for topic within the given consumer group
// (instances sharing a group load-balance; an empty group defaults to
// "<service>-consumer"). One active subscription per topic per bus instance.
//
// Handler outcome:
//   - nil                → Ack
//   - error              → retried with exponential backoff up to EventMaxAttempts
//   - retries exhausted  → handed to the DeadLetterSink, then Ack
func (q *EventBus) Subscribe(ctx context.Context, topic, group string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrBusClosed
	}
	if _, exists := q.subs[topic]; exists {
		return fmt.Errorf("events: already subscribed to %s", topic)
	}
	if group == "" {
		group = q.cfg.ServiceName + "-consumer"
	}

	sub, err := watermillsql.NewSubscriber(
		q.db,
		watermillsql.SubscriberConfig{
			SchemaAdapter:    watermillsql.DefaultPostgreSQLSchema{},
			OffsetsAdapter:   watermillsql.DefaultPostgreSQLOffsetsAdapter{},
			InitializeSchema: true,
			ConsumerGroup:    group,
		},
		&slogAdapter{log: q.log},
	)
	if err != nil {
		return fmt.Errorf("events: new subscriber for %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch, err := sub.Subscribe(subCtx, topic)
	if err != nil {
		cancel()
		_ = sub.Close()
		return fmt.Errorf("events: subscribe to %s: %w", topic, err)
	}

	done := make(chan struct{})
	q.subs[topic] = &subscription{cancel: cancel, subscriber: sub, done: done}

	dispatcher := newKeyedDispatcher(subCtx, q.cfg.EventWorkerShards)
	propagator := otel.GetTextMapPropagator()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer close(done)
		defer dispatcher.wait()

		for msg := range ch {
			carrier := propagation.MapCarrier{}
			for k, v := range msg.Metadata {
				carrier[k] = v
			}
			msgCtx := propagator.Extract(subCtx, carrier)

			env, err := envelopeFromMessage(msg)
			if err != nil {
				// Malformed payload is never retryable: quarantine directly.
				q.quarantine(msgCtx, topic, msg, env, 1, err)
				continue
			}

			m := msg
			dispatcher.dispatch(subCtx, env.AggregateID, func() {
				q.consume(msgCtx, topic, m, env, handler)
			})
		}
	}()

	return nil
}

// consume runs handler with retries, then acks, quarantines, or nacks.
func (q *EventBus) consume(ctx context.Context, topic string, msg *message.Message, env *Envelope, handler Handler) {
	maxAttempts := q.cfg.EventMaxAttempts
	baseDelay := time.Duration(q.cfg.EventRetryBaseMS) * time.Millisecond

	err := retryWithBackoff(ctx, env, handler, maxAttempts, baseDelay, q.log)
	if err == nil {
		msg.Ack()
		return
	}
	if ctx.Err() != nil {
		// Shutdown, not poison: nack so the message is redelivered on restart.
		q.log.InfoContext(ctx, "events: context cancelled mid-retry, nacking for redelivery",
			"topic", topic, "event_id", env.EventID)
		msg.Nack()
		return
	}
	q.quarantine(ctx, topic, msg, env, maxAttempts, err)
}

// quarantine hands the message to the dead-letter sink and acks it so the
// topic is not blocked. If capture fails (or no sink is installed) the message
// is nacked for redelivery — a poison message is never silently dropped.
func (q *EventBus) quarantine(ctx context.Context, topic string, msg *message.Message, env *Envelope, attempts int, cause error) {
	q.mu.Lock()
	sink := q.dlq
	q.mu.Unlock()

	if sink == nil {
		q.log.ErrorContext(ctx, "events: no dead-letter sink, nacking poison message",
			"topic", topic, "error", cause)
		msg.Nack()
		return
	}

	failed := FailedEvent{
		Topic:        topic,
		Service:      q.cfg.ServiceName,
		Payload:      msg.Payload,
		Attempts:     attempts,
		FailedAt:     time.Now().UTC(),
		HandlerError: cause,
	}
	if env != nil {
		failed.EventID = env.EventID.String()
		failed.EventType = env.EventType
		failed.AggregateID = env.AggregateID
		failed.AggregateType = env.AggregateType
	}

	if err := sink.Capture(ctx, failed); err != nil {
		q.log.ErrorContext(ctx, "events: dead-letter capture failed, nacking",
			"topic", topic, "event_id", failed.EventID, "error", err)
		msg.Nack()
		return
	}

	q.log.WarnContext(ctx, "events: message moved to dead-letter queue",
		"topic", topic, "event_id", failed.EventID, "attempts", attempts, "error", cause)
	msg.Ack()
}

// Unsubscribe stops consumption of the given topic. In-flight handlers finish
// before the subscription is torn down.
func (q *EventBus) Unsubscribe(topic string) error {
	q.mu.Lock()
	sub, ok := q.subs[topic]
	if ok {
		delete(q.subs, topic)
	}
	q.mu.Unlock()
	if !ok {
		return fmt.Errorf("events: not subscribed to %s", topic)
	}

	sub.cancel()
	<-sub.done
	if err := sub.subscriber.Close(); err != nil {
		return fmt.Errorf("events: close subscriber for %s: %w", topic, err)
	}
	return nil
}

// retryWithBackoff calls handler up to maxAttempts times with exponential
// backoff. Returns nil on first success; returns the last error after all
// attempts exhaust.
func retryWithBackoff(
	ctx context.Context,
	env *Envelope,
	handler Handler,
	maxAttempts int,
	baseDelay time.Duration,
	log logger.Logger,
) error {
	delay := baseDelay
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = handler(ctx, env); err == nil {
			return nil
		}
		if attempt < maxAttempts {
			log.WarnContext(ctx, "events: handler failed, retrying",
				"event_id", env.EventID,
				"event_type", env.EventType,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"next_delay", delay,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}
	return fmt.Errorf("events: handler failed after %d attempts: %w", maxAttempts, err)
}

// Ping checks the EventBus database connection health.
func (q *EventBus) Ping(ctx context.Context) error {
	if err := q.db.PingContext(ctx); err != nil {
		return fmt.Errorf("events: ping db: %w", err)
	}
	return nil
}

// Close gracefully shuts down the EventBus: stop subscriptions → stop
// forwarder → wait for in-flight handlers (30 s max) → close publisher →
// close database connection.
func (q *EventBus) Close() error {
	q.mu.Lock()
	q.closed = true
	subs := make([]*subscription, 0, len(q.subs))
	for topic, sub := range q.subs {
		subs = append(subs, sub)
		delete(q.subs, topic)
	}
	fwd := q.fwd
	q.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		_ = sub.subscriber.Close()
	}

	if fwd != nil {
		if err := fwd.Close(); err != nil {
			return fmt.Errorf("events: close forwarder: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	select {
	case <-done:
	case <-ctx.Done():
		q.log.Error("events: timed out waiting for in-flight handlers to complete")
	}

	if err := q.publisher.Close(); err != nil {
		return fmt.Errorf("events: close publisher: %w", err)
	}
	return q.db.Close()
}

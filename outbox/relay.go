package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/store"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultBatchSize    = 100
)

const (
	relayTickDurationMetric = "outbox_relay_tick_duration_seconds"
	relayEventsPublished    = "outbox_events_published_total"
	relayEventsFailed       = "outbox_events_failed_total"
	relayEventsParked       = "outbox_events_parked_total"
	spanNameRelayTick       = "outbox.relay.tick"
	logMsgRelayStarted      = "outbox relay started"
	logMsgRelayStopped      = "outbox relay stopped"
	logMsgTickFailed        = "outbox relay tick failed"
	logMsgTickCompleted     = "outbox relay tick completed"
	logMsgPublishFailed     = "outbox event publish failed"
	logMsgEventParked       = "outbox event parked after max attempts"
	logAttrEventID          = "event_id"
	logAttrEventType        = "event_type"
	logAttrAttempts         = "attempts"
	logAttrFetched          = "fetched"
	logAttrPublished        = "published"
	logAttrFailed           = "failed"
	logAttrSkipped          = "skipped"
	logAttrPollInterval     = "poll_interval"
	logAttrDurationMS       = "duration_ms"
	statusSuccess           = "success"
	statusError             = "error"
	labelEventType          = "event_type"
	labelStatus             = "status"
)

var (
	ErrNilStore            = errors.New("outbox store must not be nil")
	ErrNilPublisher        = errors.New("outbox publisher must not be nil")
	ErrInvalidPollInterval = errors.New("poll interval must be positive")
	ErrInvalidBatchSize    = errors.New("batch size must be positive")
	ErrNegativeMaxAttempts = errors.New("max attempts must not be negative")
)

// Store is the persistence the relay needs.
// ClaimOutboxEvent locks one unpublished event for the rest of the transaction h and reports false
// when the event is already published, parked, or locked by another relay.
type Store interface {
	InTransaction(ctx context.Context, fn store.TxFunc) error
	FindUnpublishedOutboxEvents(ctx context.Context, h store.Handle, limit int, maxAttempts int) ([]Event, error)
	ClaimOutboxEvent(ctx context.Context, h store.Handle, id uuid.UUID, maxAttempts int) (Event, bool, error)
	MarkOutboxEventPublished(ctx context.Context, h store.Handle, id uuid.UUID, at time.Time) error
	RecordOutboxEventFailure(ctx context.Context, h store.Handle, id uuid.UUID, reason string) error
}

// Publisher delivers one event, usually a *Bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// TickResult summarizes one relay pass.
type TickResult struct {
	Fetched   int
	Published int
	Failed    int
	Parked    int
	Skipped   int
}

func (t *TickResult) add(other TickResult) {
	t.Published += other.Published
	t.Failed += other.Failed
	t.Parked += other.Parked
	t.Skipped += other.Skipped
}

// Relay polls unpublished events and hands them to the Publisher.
type Relay struct {
	store            Store
	publisher        Publisher
	pollInterval     time.Duration
	batchSize        int
	maxAttempts      int
	now              func() time.Time
	logger           store.Logger
	contextualLogger store.ContextualLogger
	metricsCollector store.MetricsCollector
	tracingCollector store.TracingCollector
}

// Option configures a Relay.
type Option func(*Relay) error

// WithPollInterval sets the time between ticks.
func WithPollInterval(interval time.Duration) Option {
	return func(r *Relay) error {
		if interval <= 0 {
			return ErrInvalidPollInterval
		}

		r.pollInterval = interval

		return nil
	}
}

// WithBatchSize caps how many events one tick fetches.
func WithBatchSize(size int) Option {
	return func(r *Relay) error {
		if size <= 0 {
			return ErrInvalidBatchSize
		}

		r.batchSize = size

		return nil
	}
}

// WithMaxAttempts parks events once they failed this often. Zero retries forever.
func WithMaxAttempts(attempts int) Option {
	return func(r *Relay) error {
		if attempts < 0 {
			return ErrNegativeMaxAttempts
		}

		r.maxAttempts = attempts

		return nil
	}
}

// WithClock replaces time.Now for the published_at timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *Relay) error {
		r.now = now
		return nil
	}
}

// WithLogger sets a basic logger.
func WithLogger(logger store.Logger) Option {
	return func(r *Relay) error {
		r.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, preferred over the basic one.
func WithContextualLogger(logger store.ContextualLogger) Option {
	return func(r *Relay) error {
		r.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector store.MetricsCollector) Option {
	return func(r *Relay) error {
		r.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector.
func WithTracing(collector store.TracingCollector) Option {
	return func(r *Relay) error {
		r.tracingCollector = collector
		return nil
	}
}

// NewRelay creates a Relay with a 5 second poll interval and batches of 100.
func NewRelay(s Store, publisher Publisher, options ...Option) (*Relay, error) {
	if s == nil {
		return nil, ErrNilStore
	}

	if publisher == nil {
		return nil, ErrNilPublisher
	}

	relay := &Relay{
		store:        s,
		publisher:    publisher,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
		now:          time.Now,
	}

	for _, option := range options {
		if err := option(relay); err != nil {
			return nil, err
		}
	}

	return relay, nil
}

// Run ticks until ctx is canceled. A failed tick is logged and the next one proceeds.
func (r *Relay) Run(ctx context.Context) error {
	shell.LogInfo(ctx, r.logger, r.contextualLogger, logMsgRelayStarted, logAttrPollInterval, r.pollInterval.String())

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shell.LogInfo(context.WithoutCancel(ctx), r.logger, r.contextualLogger, logMsgRelayStopped)
			return nil
		case <-ticker.C:
			if _, err := r.Tick(ctx); err != nil && ctx.Err() == nil {
				shell.LogError(ctx, r.logger, r.contextualLogger, logMsgTickFailed, err)
			}
		}
	}
}

// Tick publishes one batch, oldest first. Every event is claimed and delivered in its own
// transaction, so a row stays locked only while its consumers run. A failed publish records the
// failure on that row and the batch continues. An infrastructure error rolls back the event at hand,
// keeps what earlier events committed and ends the tick.
func (r *Relay) Tick(ctx context.Context) (TickResult, error) {
	start := time.Now()
	ctx, span := shell.StartSpan(ctx, r.tracingCollector, spanNameRelayTick, logAttrPollInterval, r.pollInterval.String())
	ctx = store.WithStrongConsistency(ctx)

	var result TickResult

	events, err := r.store.FindUnpublishedOutboxEvents(ctx, nil, r.batchSize, r.maxAttempts)
	if err == nil {
		result.Fetched = len(events)

		for _, event := range events {
			var delivered TickResult
			if err = r.store.InTransaction(ctx, func(ctx context.Context, tx store.Handle) error {
				delivered = TickResult{}
				return r.claimAndDeliver(ctx, tx, event.ID, &delivered)
			}); err != nil {
				break
			}

			result.add(delivered)
		}
	}

	duration := time.Since(start)
	status := statusSuccess
	if err != nil {
		status = statusError
	}

	r.recordTick(ctx, status, duration)
	shell.FinishSpan(r.tracingCollector, span, status, duration, err)

	if err != nil {
		return result, err
	}

	if result.Fetched > 0 {
		shell.LogInfo(
			ctx, r.logger, r.contextualLogger, logMsgTickCompleted,
			logAttrFetched, result.Fetched,
			logAttrPublished, result.Published,
			logAttrFailed, result.Failed,
			logAttrSkipped, result.Skipped,
			logAttrDurationMS, shell.ToMilliseconds(duration),
		)
	}

	return result, nil
}

func (r *Relay) claimAndDeliver(ctx context.Context, tx store.Handle, id uuid.UUID, result *TickResult) error {
	event, claimed, err := r.store.ClaimOutboxEvent(ctx, tx, id, r.maxAttempts)
	if err != nil {
		return err
	}

	if !claimed {
		result.Skipped++
		return nil
	}

	return r.deliver(ctx, tx, event, result)
}

func (r *Relay) deliver(ctx context.Context, tx store.Handle, event Event, result *TickResult) error {
	publishErr := r.publisher.Publish(ctx, event)
	if publishErr == nil {
		if err := r.store.MarkOutboxEventPublished(ctx, tx, event.ID, r.now().UTC()); err != nil {
			return err
		}

		result.Published++
		r.count(ctx, relayEventsPublished, event.EventType)

		return nil
	}

	if err := r.store.RecordOutboxEventFailure(ctx, tx, event.ID, publishErr.Error()); err != nil {
		return err
	}

	result.Failed++
	r.count(ctx, relayEventsFailed, event.EventType)

	attempts := event.Attempts + 1
	shell.LogError(
		ctx, r.logger, r.contextualLogger, logMsgPublishFailed, publishErr,
		logAttrEventID, event.ID.String(),
		logAttrEventType, event.EventType,
		logAttrAttempts, attempts,
	)

	if r.maxAttempts > 0 && attempts >= r.maxAttempts {
		result.Parked++
		r.count(ctx, relayEventsParked, event.EventType)
		shell.LogWarn(
			ctx, r.logger, r.contextualLogger, logMsgEventParked,
			logAttrEventID, event.ID.String(),
			logAttrEventType, event.EventType,
			logAttrAttempts, attempts,
		)
	}

	return nil
}

func (r *Relay) count(ctx context.Context, metric, eventType string) {
	if r.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelEventType: eventType}

	if contextual, ok := r.metricsCollector.(store.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	r.metricsCollector.IncrementCounter(metric, labels)
}

func (r *Relay) recordTick(ctx context.Context, status string, duration time.Duration) {
	if r.metricsCollector == nil {
		return
	}

	labels := map[string]string{labelStatus: status}

	if contextual, ok := r.metricsCollector.(store.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, relayTickDurationMetric, duration, labels)
		return
	}

	r.metricsCollector.RecordDuration(relayTickDurationMetric, duration, labels)
}

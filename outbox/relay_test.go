package outbox_test

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Facupelli/equipment-rental/outbox"
	"github.com/Facupelli/equipment-rental/store"
	"github.com/Facupelli/equipment-rental/testutil/testdoubles"
)

var baseTime = time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)

func Test_Relay_Tick_PublishesInCreationOrderAndMarksPublished(t *testing.T) {
	// arrange
	st := newStoreFake()
	first := st.stage(t, "ReservationCreated", 0)
	second := st.stage(t, "ReservationConfirmed", time.Second)
	publisher := &publisherFake{}
	relay := newRelay(t, st, publisher)

	// act
	result, err := relay.Tick(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, outbox.TickResult{Fetched: 2, Published: 2}, result)
	assert.Equal(t, []uuid.UUID{first, second}, publisher.deliveredIDs())
	assert.True(t, st.event(first).IsPublished())
	assert.True(t, st.event(second).IsPublished())
}

func Test_Relay_Tick_FailedEventDoesNotBlockOthers(t *testing.T) {
	// arrange
	st := newStoreFake()
	failing := st.stage(t, "ReservationConfirmed", 0)
	healthy := st.stage(t, "ReservationConfirmed", time.Second)
	publisher := &publisherFake{failFor: map[uuid.UUID]error{failing: errors.New("consumer down")}}
	relay := newRelay(t, st, publisher)

	// act
	result, err := relay.Tick(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, 1, result.Published)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, st.event(healthy).IsPublished())
	assert.False(t, st.event(failing).IsPublished())
	assert.Equal(t, 1, st.event(failing).Attempts)
	assert.Equal(t, "consumer down", st.event(failing).LastError)
}

func Test_Relay_Tick_RedeliversUnpublishedEventOnNextTick(t *testing.T) {
	// arrange
	st := newStoreFake()
	id := st.stage(t, "ReservationConfirmed", 0)
	publisher := &publisherFake{failFor: map[uuid.UUID]error{id: errors.New("transient")}}
	relay := newRelay(t, st, publisher)

	_, err := relay.Tick(context.Background())
	require.NoError(t, err)
	publisher.recover()

	// act
	result, err := relay.Tick(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, outbox.TickResult{Fetched: 1, Published: 1}, result)
	assert.True(t, st.event(id).IsPublished())
	assert.Len(t, publisher.deliveredIDs(), 2)
}

func Test_Relay_Tick_StoreFailureRollsBackOnlyTheEventAtHand(t *testing.T) {
	// arrange
	st := newStoreFake()
	first := st.stage(t, "ReservationCreated", 0)
	second := st.stage(t, "ReservationCreated", time.Second)
	third := st.stage(t, "ReservationCreated", 2*time.Second)
	st.failMarkFor = second
	relay := newRelay(t, st, &publisherFake{})

	// act
	result, err := relay.Tick(context.Background())

	// assert
	assert.ErrorIs(t, err, store.ErrExecutingFailed)
	assert.Equal(t, outbox.TickResult{Fetched: 3, Published: 1}, result)
	assert.True(t, st.event(first).IsPublished(), "the first event committed on its own")
	assert.False(t, st.event(second).IsPublished())
	assert.False(t, st.event(third).IsPublished(), "the tick ends at the failure")
}

func Test_Relay_Tick_DeliversEveryEventInItsOwnTransaction(t *testing.T) {
	// arrange
	st := newStoreFake()
	st.stage(t, "ReservationCreated", 0)
	st.stage(t, "ReservationConfirmed", time.Second)
	st.stage(t, "ReservationStarted", 2*time.Second)
	relay := newRelay(t, st, &publisherFake{})

	// act
	result, err := relay.Tick(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, 3, result.Published)
	assert.Equal(t, 3, st.transactionCount())
}

func Test_Relay_Tick_SkipsEventClaimedByAnotherRelay(t *testing.T) {
	// arrange
	st := newStoreFake()
	taken := st.stage(t, "ReservationConfirmed", 0)
	free := st.stage(t, "ReservationConfirmed", time.Second)
	st.claimedElsewhere = taken
	publisher := &publisherFake{}
	relay := newRelay(t, st, publisher)

	// act
	result, err := relay.Tick(context.Background())

	// assert
	require.NoError(t, err)
	assert.Equal(t, outbox.TickResult{Fetched: 2, Published: 1, Skipped: 1}, result)
	assert.Equal(t, []uuid.UUID{free}, publisher.deliveredIDs())
	assert.False(t, st.event(taken).IsPublished())
}

func Test_Relay_Tick_ParksEventAfterMaxAttempts(t *testing.T) {
	// arrange
	st := newStoreFake()
	id := st.stage(t, "ReservationConfirmed", 0)
	publisher := &publisherFake{failFor: map[uuid.UUID]error{id: errors.New("poison")}}
	logger := testdoubles.NewLoggerSpy()
	metrics := testdoubles.NewMetricsCollectorSpy()
	relay := newRelay(t, st, publisher,
		outbox.WithMaxAttempts(2),
		outbox.WithContextualLogger(logger),
		outbox.WithMetrics(metrics),
	)

	// act
	firstTick, err1 := relay.Tick(context.Background())
	secondTick, err2 := relay.Tick(context.Background())
	thirdTick, err3 := relay.Tick(context.Background())

	// assert
	require.NoError(t, errors.Join(err1, err2, err3))
	assert.Equal(t, 0, firstTick.Parked)
	assert.Equal(t, 1, secondTick.Parked)
	assert.Equal(t, 0, thirdTick.Fetched, "parked events are not polled again")
	assert.True(t, logger.HasRecord("warn", "outbox event parked after max attempts"))
	assert.Equal(t, 2, metrics.CountCounterRecordsForMetric("outbox_events_failed_total"))
}

func Test_Relay_Run_StopsWhenContextIsCanceled(t *testing.T) {
	// arrange
	st := newStoreFake()
	id := st.stage(t, "ReservationCreated", 0)
	publisher := &publisherFake{}
	relay := newRelay(t, st, publisher, outbox.WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	// act
	go func() { done <- relay.Run(ctx) }()

	// assert
	assert.Eventually(t, func() bool { return st.event(id).IsPublished() }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

func Test_NewRelay_RejectsInvalidOptions(t *testing.T) {
	st := newStoreFake()

	_, err := outbox.NewRelay(nil, &publisherFake{})
	assert.ErrorIs(t, err, outbox.ErrNilStore)

	_, err = outbox.NewRelay(st, nil)
	assert.ErrorIs(t, err, outbox.ErrNilPublisher)

	_, err = outbox.NewRelay(st, &publisherFake{}, outbox.WithBatchSize(0))
	assert.ErrorIs(t, err, outbox.ErrInvalidBatchSize)

	_, err = outbox.NewRelay(st, &publisherFake{}, outbox.WithPollInterval(0))
	assert.ErrorIs(t, err, outbox.ErrInvalidPollInterval)

	_, err = outbox.NewRelay(st, &publisherFake{}, outbox.WithMaxAttempts(-1))
	assert.ErrorIs(t, err, outbox.ErrNegativeMaxAttempts)
}

/*** test helpers ***/

func newRelay(t *testing.T, st *storeFake, publisher outbox.Publisher, options ...outbox.Option) *outbox.Relay {
	t.Helper()

	options = append([]outbox.Option{outbox.WithClock(func() time.Time { return baseTime })}, options...)
	relay, err := outbox.NewRelay(st, publisher, options...)
	require.NoError(t, err)

	return relay
}

type handleDummy struct{}

func (handleDummy) Query(context.Context, string, ...any) (store.Rows, error)   { return nil, nil }
func (handleDummy) Exec(context.Context, string, ...any) (store.Result, error) { return nil, nil }

type storeFake struct {
	mu               sync.Mutex
	events           map[uuid.UUID]outbox.Event
	failMarkFor      uuid.UUID
	claimedElsewhere uuid.UUID
	transactions     int
}

func newStoreFake() *storeFake {
	return &storeFake{events: make(map[uuid.UUID]outbox.Event)}
}

func (s *storeFake) stage(t *testing.T, eventType string, offset time.Duration) uuid.UUID {
	t.Helper()

	event, err := outbox.NewEvent(eventType, uuid.New(), map[string]string{"k": "v"}, baseTime.Add(offset))
	require.NoError(t, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.ID] = event

	return event.ID
}

func (s *storeFake) event(id uuid.UUID) outbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.events[id]
}

func (s *storeFake) transactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.transactions
}

func (s *storeFake) InTransaction(ctx context.Context, fn store.TxFunc) error {
	s.mu.Lock()
	s.transactions++
	snapshot := maps.Clone(s.events)
	s.mu.Unlock()

	if err := fn(ctx, handleDummy{}); err != nil {
		s.mu.Lock()
		s.events = snapshot
		s.mu.Unlock()

		return err
	}

	return nil
}

func (s *storeFake) FindUnpublishedOutboxEvents(_ context.Context, _ store.Handle, limit int, maxAttempts int) ([]outbox.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []outbox.Event
	for _, event := range s.events {
		if event.IsPublished() || (maxAttempts > 0 && event.Attempts >= maxAttempts) {
			continue
		}
		found = append(found, event)
	}

	slices.SortFunc(found, func(a, b outbox.Event) int { return a.CreatedAt.Compare(b.CreatedAt) })

	if len(found) > limit {
		found = found[:limit]
	}

	return found, nil
}

func (s *storeFake) ClaimOutboxEvent(_ context.Context, _ store.Handle, id uuid.UUID, maxAttempts int) (outbox.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[id]
	if !ok || id == s.claimedElsewhere || event.IsPublished() || (maxAttempts > 0 && event.Attempts >= maxAttempts) {
		return outbox.Event{}, false, nil
	}

	return event, true, nil
}

func (s *storeFake) MarkOutboxEventPublished(_ context.Context, _ store.Handle, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.failMarkFor {
		return store.ErrExecutingFailed
	}

	event := s.events[id]
	event.PublishedAt = &at
	s.events[id] = event

	return nil
}

func (s *storeFake) RecordOutboxEventFailure(_ context.Context, _ store.Handle, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := s.events[id]
	event.Attempts++
	event.LastError = reason
	s.events[id] = event

	return nil
}

type publisherFake struct {
	mu        sync.Mutex
	failFor   map[uuid.UUID]error
	delivered []uuid.UUID
}

func (p *publisherFake) Publish(_ context.Context, event outbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.delivered = append(p.delivered, event.ID)

	return p.failFor[event.ID]
}

func (p *publisherFake) recover() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failFor = nil
}

func (p *publisherFake) deliveredIDs() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]uuid.UUID(nil), p.delivered...)
}

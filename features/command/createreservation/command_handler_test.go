package createreservation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Facupelli/equipment-rental/availability"
	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/features/command/createreservation"
	"github.com/Facupelli/equipment-rental/pricing"
	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/store"
	"github.com/Facupelli/equipment-rental/testutil/testdoubles"
)

var now = time.Date(2031, 5, 4, 8, 0, 0, 0, time.UTC)

type candidateFinderStub struct {
	candidates availability.Candidates
	queries    []availability.Query
}

func (s *candidateFinderStub) FindCandidateUnits(_ context.Context, _ store.Handle, q availability.Query) (availability.Candidates, error) {
	s.queries = append(s.queries, q)
	return s.candidates, nil
}

func Test_CommandHandler_Handle_AdmitsReservationWithPlannedUnits(t *testing.T) {
	// arrange
	st := testdoubles.NewBookingStoreFake()
	typeID := uuid.New()
	units := st.GivenUnits(typeID, 3, now.Add(-time.Hour))
	finder := &candidateFinderStub{candidates: availability.Candidates{
		Result:  availability.Result{IsAvailable: true, RemainingCapacity: 3},
		UnitIDs: units[:2],
	}}
	handler := createreservation.NewCommandHandler(st, finder, newCalculator(t))
	command := newCommand(st.GivenCustomer(), typeID, 2)

	// act
	result, err := handler.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	assert.False(t, result.Idempotent)

	order, ok := st.Order(command.ReservationID)
	require.True(t, ok)
	assert.Equal(t, booking.StatusPending, order.Status())
	require.Len(t, order.Items(), 1)

	item := order.Items()[0]
	assert.Equal(t, 2, item.RequestedQuantity())
	assert.True(t, item.IsFullyAllocated())
	assert.ElementsMatch(t, units[:2], allocatedUnits(item))
	// 24h at 1000/day beats 24 x 100/h; two units
	assert.Equal(t, booking.Cents(2000), order.Total())

	require.Len(t, finder.queries, 1)
	assert.Equal(t, 3, finder.queries[0].TotalInventory)
	assert.Equal(t, []uuid.UUID{typeID}, st.LockedTypes())
}

func Test_CommandHandler_Handle_StagesReservationCreatedWithOrder(t *testing.T) {
	// arrange
	st := testdoubles.NewBookingStoreFake()
	typeID := uuid.New()
	units := st.GivenUnits(typeID, 1, now.Add(-time.Hour))
	finder := &candidateFinderStub{candidates: availability.Candidates{
		Result:  availability.Result{IsAvailable: true, RemainingCapacity: 1},
		UnitIDs: units,
	}}
	handler := createreservation.NewCommandHandler(st, finder, newCalculator(t))
	command := newCommand(st.GivenCustomer(), typeID, 1)

	// act
	_, err := handler.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)

	events := st.EventsOfType(booking.ReservationCreatedEventType)
	require.Len(t, events, 1)
	assert.Equal(t, command.ReservationID, events[0].AggregateID)

	payload, err := shell.DecodePayload[booking.ReservationCreated](events[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, command.ReservationID, payload.ReservationID)
	assert.Equal(t, command.CustomerID, payload.CustomerID)
	assert.Equal(t, typeID, payload.EquipmentTypeID)
	assert.Equal(t, 1, payload.Quantity)
	assert.Equal(t, int64(1000), payload.TotalAmountCents)
	assert.True(t, command.Window.Start().Equal(payload.StartTime))
}

func Test_CommandHandler_Handle_ExistingReservationIsIdempotent(t *testing.T) {
	// arrange
	st := testdoubles.NewBookingStoreFake()
	typeID := uuid.New()
	units := st.GivenUnits(typeID, 2, now.Add(-time.Hour))
	finder := &candidateFinderStub{candidates: availability.Candidates{
		Result:  availability.Result{IsAvailable: true, RemainingCapacity: 2},
		UnitIDs: units[:1],
	}}
	handler := createreservation.NewCommandHandler(st, finder, newCalculator(t))
	command := newCommand(st.GivenCustomer(), typeID, 1)

	_, err := handler.Handle(context.Background(), command)
	require.NoError(t, err)

	// act
	result, err := handler.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	assert.True(t, result.Idempotent)
	assert.Len(t, st.Events(), 1)
	assert.Len(t, finder.queries, 1)
}

func Test_CommandHandler_Handle_RejectsUnknownCustomer(t *testing.T) {
	// arrange
	st := testdoubles.NewBookingStoreFake()
	typeID := uuid.New()
	finder := &candidateFinderStub{}
	handler := createreservation.NewCommandHandler(st, finder, newCalculator(t))
	command := newCommand(uuid.New(), typeID, 1)

	// act
	_, err := handler.Handle(context.Background(), command)

	// assert
	require.ErrorIs(t, err, booking.ErrCustomerNotFound)
	assert.Empty(t, finder.queries)
	assert.Empty(t, st.Events())
}

func Test_CommandHandler_Handle_RejectsInsufficientCapacity(t *testing.T) {
	// arrange
	st := testdoubles.NewBookingStoreFake()
	typeID := uuid.New()
	st.GivenUnits(typeID, 2, now.Add(-time.Hour))
	finder := &candidateFinderStub{candidates: availability.Candidates{
		Result: availability.Result{IsAvailable: false, PeakUsage: 2, RemainingCapacity: 0},
	}}
	handler := createreservation.NewCommandHandler(st, finder, newCalculator(t))
	command := newCommand(st.GivenCustomer(), typeID, 1)

	// act
	result, err := handler.Handle(context.Background(), command)

	// assert
	require.ErrorIs(t, err, booking.ErrInsufficientCapacity)
	assert.Equal(t, 1, result.RetryAttempts)

	_, ok := st.Order(command.ReservationID)
	assert.False(t, ok)
	assert.Empty(t, st.Events())
}

func Test_CommandHandler_Handle_RejectsInvalidRequestsBeforeTouchingTheStore(t *testing.T) {
	typeID := uuid.New()
	customerID := uuid.New()

	testCases := []struct {
		name    string
		command createreservation.Command
		wantErr error
	}{
		{
			name:    "start in the past",
			command: createreservation.BuildCommand(uuid.New(), customerID, typeID, window(-2*time.Hour, 24*time.Hour), 1, "", now),
			wantErr: booking.ErrStartInPast,
		},
		{
			name:    "zero quantity",
			command: createreservation.BuildCommand(uuid.New(), customerID, typeID, window(time.Hour, 24*time.Hour), 0, "", now),
			wantErr: booking.ErrNonPositiveQuantity,
		},
		{
			name:    "missing window",
			command: createreservation.BuildCommand(uuid.New(), customerID, typeID, booking.TimeRange{}, 1, "", now),
			wantErr: booking.ErrInvalidTimeRange,
		},
		{
			name:    "missing customer id",
			command: createreservation.BuildCommand(uuid.New(), uuid.Nil, typeID, window(time.Hour, 24*time.Hour), 1, "", now),
			wantErr: booking.ErrMissingIdentifier,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			st := testdoubles.NewBookingStoreFake()
			handler := createreservation.NewCommandHandler(st, &candidateFinderStub{}, newCalculator(t))

			// act
			_, err := handler.Handle(context.Background(), tc.command)

			// assert
			require.ErrorIs(t, err, tc.wantErr)
			assert.Zero(t, st.Transactions())
		})
	}
}

func Test_CommandHandler_Handle_OutboxFailureLeavesNoOrder(t *testing.T) {
	// arrange
	st := testdoubles.NewBookingStoreFake()
	typeID := uuid.New()
	units := st.GivenUnits(typeID, 1, now.Add(-time.Hour))
	finder := &candidateFinderStub{candidates: availability.Candidates{
		Result:  availability.Result{IsAvailable: true, RemainingCapacity: 1},
		UnitIDs: units,
	}}
	st.FailNext(testdoubles.MethodAppendOutboxEvents, store.ErrQueryingFailed)
	handler := createreservation.NewCommandHandler(st, finder, newCalculator(t))
	command := newCommand(st.GivenCustomer(), typeID, 1)

	// act
	_, err := handler.Handle(context.Background(), command)

	// assert
	require.ErrorIs(t, err, store.ErrQueryingFailed)

	_, ok := st.Order(command.ReservationID)
	assert.False(t, ok)
	assert.Empty(t, st.Events())
}

func Test_CommandHandler_Handle_RetriesConcurrencyConflict(t *testing.T) {
	// arrange
	st := testdoubles.NewBookingStoreFake()
	typeID := uuid.New()
	units := st.GivenUnits(typeID, 1, now.Add(-time.Hour))
	finder := &candidateFinderStub{candidates: availability.Candidates{
		Result:  availability.Result{IsAvailable: true, RemainingCapacity: 1},
		UnitIDs: units,
	}}
	st.FailNext(testdoubles.MethodInsertReservationOrder, store.ErrConcurrencyConflict)
	handler := createreservation.NewCommandHandler(st, finder, newCalculator(t),
		createreservation.WithRetryOptions(shell.WithBaseDelay(time.Millisecond)),
	)
	command := newCommand(st.GivenCustomer(), typeID, 1)

	// act
	result, err := handler.Handle(context.Background(), command)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, result.RetryAttempts)
	assert.Len(t, st.Events(), 1)
}

func newCalculator(t *testing.T) *pricing.Calculator {
	t.Helper()

	calculator, err := pricing.NewCalculator(
		pricing.WithDefaultRateCard(pricing.RateCard{
			HourlyRate: booking.Cents(100),
			DailyRate:  booking.Cents(1000),
		}),
		pricing.WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	return calculator
}

func newCommand(customerID, typeID uuid.UUID, quantity int) createreservation.Command {
	return createreservation.BuildCommand(
		uuid.New(),
		customerID,
		typeID,
		window(24*time.Hour, 24*time.Hour),
		quantity,
		"",
		now,
	)
}

func window(startOffset, length time.Duration) booking.TimeRange {
	return booking.MustTimeRange(now.Add(startOffset), now.Add(startOffset+length))
}

func allocatedUnits(item booking.ReservationOrderItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(item.Allocations()))
	for _, allocation := range item.Allocations() {
		ids = append(ids, allocation.EquipmentUnitID())
	}

	return ids
}

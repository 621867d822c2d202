package booking_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Facupelli/equipment-rental/booking"
)

func Test_ReservationOrder_Confirm_WithoutItems_FailsWithInvalidStateTransition(t *testing.T) {
	// arrange
	order, err := booking.NewReservationOrder(uuid.New(), uuid.New(), nil, day(1))
	require.NoError(t, err)

	// act
	_, err = order.Confirm()

	// assert
	assert.ErrorIs(t, err, booking.ErrInvalidStateTransition)
	assert.Equal(t, booking.StatusPending, order.Status(), "failed transition must not change the original")
}

func Test_ReservationOrder_FullLifecycle(t *testing.T) {
	order := buildOrder(t, 2)
	assert.Equal(t, booking.StatusPending, order.Status())

	confirmed, err := order.Confirm()
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, confirmed.Status())
	assert.Equal(t, booking.StatusPending, order.Status(), "transitions return a new snapshot")

	started, err := confirmed.StartInProgress()
	require.NoError(t, err)
	assert.Equal(t, booking.StatusInProgress, started.Status())

	completed, err := started.Complete()
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCompleted, completed.Status())
}

func Test_ReservationOrder_IllegalTransitions(t *testing.T) {
	pending := buildOrder(t, 1)
	confirmed, err := pending.Confirm()
	require.NoError(t, err)
	inProgress, err := confirmed.StartInProgress()
	require.NoError(t, err)
	completed, err := inProgress.Complete()
	require.NoError(t, err)
	cancelled, err := pending.Cancel()
	require.NoError(t, err)

	type transition func(booking.ReservationOrder) (booking.ReservationOrder, error)

	confirm := booking.ReservationOrder.Confirm
	cancel := booking.ReservationOrder.Cancel
	start := booking.ReservationOrder.StartInProgress
	complete := booking.ReservationOrder.Complete

	testCases := []struct {
		description string
		order       booking.ReservationOrder
		transition  transition
	}{
		{"confirm confirmed", confirmed, confirm},
		{"confirm cancelled", cancelled, confirm},
		{"confirm in progress", inProgress, confirm},
		{"cancel cancelled", cancelled, cancel},
		{"cancel in progress", inProgress, cancel},
		{"cancel completed", completed, cancel},
		{"start pending", pending, start},
		{"start completed", completed, start},
		{"complete pending", pending, complete},
		{"complete confirmed", confirmed, complete},
		{"complete cancelled", cancelled, complete},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			_, err := tc.transition(tc.order)
			assert.ErrorIs(t, err, booking.ErrInvalidStateTransition)
		})
	}
}

func Test_ReservationOrder_Cancel_FromPendingAndConfirmed(t *testing.T) {
	pending := buildOrder(t, 1)

	cancelled, err := pending.Cancel()
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status())

	confirmed, err := pending.Confirm()
	require.NoError(t, err)

	cancelled, err = confirmed.Cancel()
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status())
}

func Test_NewReservationOrder_SumsItemTotals(t *testing.T) {
	window := booking.MustTimeRange(day(2), day(4))
	first := buildItem(t, window, 1, booking.Cents(1500))
	second := buildItem(t, window, 1, booking.Cents(2500))

	order, err := booking.NewReservationOrder(uuid.New(), uuid.New(), []booking.ReservationOrderItem{first, second}, day(1))

	require.NoError(t, err)
	assert.Equal(t, booking.Cents(4000), order.Total())
	assert.Len(t, order.Items(), 2)
}

func Test_NewReservationOrder_RejectsMixedCurrencies(t *testing.T) {
	window := booking.MustTimeRange(day(2), day(4))
	first := buildItem(t, window, 1, booking.Money{AmountCents: 100, Currency: "USD"})
	second := buildItem(t, window, 1, booking.Money{AmountCents: 100, Currency: "EUR"})

	_, err := booking.NewReservationOrder(uuid.New(), uuid.New(), []booking.ReservationOrderItem{first, second}, day(1))

	assert.ErrorIs(t, err, booking.ErrCurrencyMismatch)
}

func Test_ReservationOrderItem_AllocationBounds(t *testing.T) {
	window := booking.MustTimeRange(day(2), day(4))
	item := buildItem(t, window, 2, booking.Cents(100))
	assert.False(t, item.IsFullyAllocated())

	item, err := item.Allocate(allocation(t, window))
	require.NoError(t, err)
	assert.False(t, item.IsFullyAllocated())

	item, err = item.Allocate(allocation(t, window))
	require.NoError(t, err)
	assert.True(t, item.IsFullyAllocated())

	_, err = item.Allocate(allocation(t, window))
	assert.ErrorIs(t, err, booking.ErrItemFullyAllocated)
}

func Test_NewReservationOrderItem_RejectsInvalidInput(t *testing.T) {
	window := booking.MustTimeRange(day(2), day(4))

	_, err := booking.NewReservationOrderItem(uuid.New(), uuid.New(), 0, window, booking.Quote{})
	assert.ErrorIs(t, err, booking.ErrNonPositiveQuantity)

	_, err = booking.NewReservationOrderItem(
		uuid.New(), uuid.New(), 1, window, booking.Quote{},
		allocation(t, window), allocation(t, window),
	)
	assert.ErrorIs(t, err, booking.ErrTooManyAllocations)

	_, err = booking.NewReservationOrderItem(
		uuid.New(), uuid.New(), 1, window, booking.Quote{},
		allocation(t, booking.MustTimeRange(day(2), day(3))),
	)
	assert.ErrorIs(t, err, booking.ErrAllocationOutsideWindow)
}

func Test_BuildReservationConfirmed_EmitsOnePayloadPerItem(t *testing.T) {
	order := buildOrder(t, 3)
	confirmed, err := order.Confirm()
	require.NoError(t, err)
	occurredAt := day(1).Add(time.Hour)

	events := booking.BuildReservationConfirmed(confirmed, occurredAt)

	require.Len(t, events, 1)
	assert.Equal(t, order.ID(), events[0].ReservationID)
	assert.Equal(t, 3, events[0].Quantity)
	assert.True(t, events[0].StartTime.Equal(day(2)))
	assert.True(t, events[0].OccurredAt.Equal(occurredAt))
}

func buildOrder(t *testing.T, quantity int) booking.ReservationOrder {
	t.Helper()

	window := booking.MustTimeRange(day(2), day(4))
	allocations := make([]booking.Allocation, 0, quantity)
	for range quantity {
		allocations = append(allocations, allocation(t, window))
	}

	item, err := booking.NewReservationOrderItem(uuid.New(), uuid.New(), quantity, window, booking.Quote{Total: booking.Cents(1000)}, allocations...)
	require.NoError(t, err)

	order, err := booking.NewReservationOrder(uuid.New(), uuid.New(), []booking.ReservationOrderItem{item}, day(1))
	require.NoError(t, err)

	return order
}

func buildItem(t *testing.T, window booking.TimeRange, quantity int, total booking.Money) booking.ReservationOrderItem {
	t.Helper()

	item, err := booking.NewReservationOrderItem(uuid.New(), uuid.New(), quantity, window, booking.Quote{Total: total})
	require.NoError(t, err)

	return item
}

func allocation(t *testing.T, window booking.TimeRange) booking.Allocation {
	t.Helper()

	a, err := booking.NewAllocation(uuid.New(), uuid.New(), window)
	require.NoError(t, err)

	return a
}

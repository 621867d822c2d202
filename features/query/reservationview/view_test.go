package reservationview_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/features/query/reservationview"
)

func Test_FromOrder_FlattensItemsAndAllocations(t *testing.T) {
	// arrange
	start := time.Date(2031, 7, 1, 9, 0, 0, 0, time.UTC)
	window := booking.MustTimeRange(start, start.Add(48*time.Hour))
	unitID := uuid.New()

	allocation, err := booking.NewAllocation(uuid.New(), unitID, window)
	require.NoError(t, err)

	item, err := booking.NewReservationOrderItem(uuid.New(), uuid.New(), 2, window,
		booking.Quote{Total: booking.Cents(4200)}, allocation)
	require.NoError(t, err)

	order, err := booking.NewReservationOrder(uuid.New(), uuid.New(), []booking.ReservationOrderItem{item}, start.Add(-time.Hour))
	require.NoError(t, err)

	// act
	view := reservationview.FromOrder(order)

	// assert
	assert.Equal(t, order.ID(), view.ID)
	assert.Equal(t, booking.StatusPending, view.Status)
	assert.Equal(t, booking.Cents(4200), view.Total)
	require.Len(t, view.Items, 1)
	assert.False(t, view.Items[0].FullyAllocated)
	assert.Equal(t, 2, view.Items[0].RequestedQuantity)
	require.Len(t, view.Items[0].Allocations, 1)
	assert.Equal(t, unitID, view.Items[0].Allocations[0].EquipmentUnitID)
	assert.True(t, window.End().Equal(view.Items[0].Allocations[0].EndTime))
}

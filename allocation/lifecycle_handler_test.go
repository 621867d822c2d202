package allocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Facupelli/equipment-rental/allocation"
	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/outbox"
)

func Test_LifecycleHandler_Handle_FollowsReservationLifecycle(t *testing.T) {
	// arrange
	st := newStoreFake()
	typeID := uuid.New()
	units := st.addAvailableUnits(typeID, 2)
	command := confirmedCommand(st, typeID, 2)
	_, err := newHandler(st).Handle(context.Background(), command)
	require.NoError(t, err)

	lifecycle := allocation.NewLifecycleHandler(st, allocation.WithClock(func() time.Time { return baseTime }))

	// act
	started, startErr := lifecycle.Handle(context.Background(), allocation.LifecycleCommand{ReservationID: command.ReservationID})
	inUse := st.item(units[0]).Status()
	completed, completeErr := lifecycle.Handle(context.Background(), allocation.LifecycleCommand{
		ReservationID: command.ReservationID,
		Release:       true,
	})

	// assert
	require.NoError(t, startErr)
	require.NoError(t, completeErr)
	assert.False(t, started.Idempotent)
	assert.False(t, completed.Idempotent)
	assert.Equal(t, inventory.StatusInUse, inUse)
	assert.Empty(t, st.boundTo(command.ReservationID))
	for _, id := range units {
		assert.Equal(t, inventory.StatusAvailable, st.item(id).Status())
		assert.Equal(t, int64(4), st.item(id).Version())
	}
}

func Test_LifecycleHandler_Handle_WithoutBoundUnitsIsNoOp(t *testing.T) {
	// arrange
	st := newStoreFake()
	lifecycle := allocation.NewLifecycleHandler(st)

	// act
	result, err := lifecycle.Handle(context.Background(), allocation.LifecycleCommand{ReservationID: uuid.New(), Release: true})

	// assert
	require.NoError(t, err)
	assert.True(t, result.Idempotent)
	assert.Zero(t, st.saves)
}

func Test_LifecycleHandler_Handle_RepeatedStartIsIdempotent(t *testing.T) {
	// arrange
	st := newStoreFake()
	typeID := uuid.New()
	st.addAvailableUnits(typeID, 1)
	command := confirmedCommand(st, typeID, 1)
	_, err := newHandler(st).Handle(context.Background(), command)
	require.NoError(t, err)

	lifecycle := allocation.NewLifecycleHandler(st)
	start := allocation.LifecycleCommand{ReservationID: command.ReservationID}
	_, err = lifecycle.Handle(context.Background(), start)
	require.NoError(t, err)

	// act
	result, err := lifecycle.Handle(context.Background(), start)

	// assert
	require.NoError(t, err)
	assert.True(t, result.Idempotent)
}

func Test_LifecycleConsumer_ReleasesUnitsOnCancellation(t *testing.T) {
	// arrange
	st := newStoreFake()
	typeID := uuid.New()
	units := st.addAvailableUnits(typeID, 1)
	command := confirmedCommand(st, typeID, 1)
	_, err := newHandler(st).Handle(context.Background(), command)
	require.NoError(t, err)

	bus := outbox.NewBus()
	allocation.Subscribe(bus, newHandler(st), allocation.NewLifecycleHandler(st))

	event, err := outbox.NewEvent(booking.ReservationCancelledEventType, command.ReservationID, booking.ReservationCancelled{
		ReservationID: command.ReservationID,
		PriorStatus:   booking.StatusConfirmed,
		Reason:        "customer request",
		OccurredAt:    baseTime,
	}, baseTime)
	require.NoError(t, err)

	// act
	err = bus.Publish(context.Background(), event)

	// assert
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusAvailable, st.item(units[0]).Status())
	assert.Equal(t, uuid.Nil, st.item(units[0]).AllocatedReservationID())
}

package completereservation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/features/command/completereservation"
	"github.com/Facupelli/equipment-rental/testutil/testdoubles"
)

var now = time.Date(2031, 6, 4, 17, 0, 0, 0, time.UTC)

func Test_CommandHandler_Handle_CompletesInProgressOrder(t *testing.T) {
	// arrange
	st := testdoubles.NewBookingStoreFake()
	order := booking.ReconstituteReservationOrder(uuid.New(), uuid.New(), nil, booking.StatusInProgress, now, booking.Cents(0))
	st.GivenOrder(order)
	handler := completereservation.NewCommandHandler(st)

	// act
	_, err := handler.Handle(context.Background(), completereservation.BuildCommand(order.ID(), now))

	// assert
	require.NoError(t, err)

	stored, _ := st.Order(order.ID())
	assert.Equal(t, booking.StatusCompleted, stored.Status())
	assert.Len(t, st.EventsOfType(booking.ReservationCompletedEventType), 1)
}

func Test_CommandHandler_Handle_CompleteIsStrictlySequential(t *testing.T) {
	for _, status := range []booking.ReservationStatus{booking.StatusPending, booking.StatusConfirmed, booking.StatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			// arrange
			st := testdoubles.NewBookingStoreFake()
			order := booking.ReconstituteReservationOrder(uuid.New(), uuid.New(), nil, status, now, booking.Cents(0))
			st.GivenOrder(order)
			handler := completereservation.NewCommandHandler(st)

			// act
			_, err := handler.Handle(context.Background(), completereservation.BuildCommand(order.ID(), now))

			// assert
			require.ErrorIs(t, err, booking.ErrInvalidStateTransition)
			assert.Empty(t, st.Events())
		})
	}
}

package allocation

import (
	"context"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/outbox"
	"github.com/Facupelli/equipment-rental/shell"
)

// ConfirmedConsumer adapts a Command handler to the outbox bus for ReservationConfirmed events.
func ConfirmedConsumer(handler shell.CoreCommandHandler[Command]) outbox.HandlerFunc {
	return func(ctx context.Context, event outbox.Event) error {
		payload, err := shell.DecodePayload[booking.ReservationConfirmed](event.Payload)
		if err != nil {
			return err
		}

		command, err := BuildCommand(payload)
		if err != nil {
			return err
		}

		_, err = handler.Handle(ctx, command)

		return err
	}
}

type reservationRef struct {
	ReservationID uuid.UUID `json:"reservationId"`
}

// LifecycleConsumer adapts a LifecycleCommand handler to the outbox bus.
// With release set it serves ReservationCompleted and ReservationCancelled, otherwise ReservationStarted.
func LifecycleConsumer(handler shell.CoreCommandHandler[LifecycleCommand], release bool) outbox.HandlerFunc {
	return func(ctx context.Context, event outbox.Event) error {
		ref, err := shell.DecodePayload[reservationRef](event.Payload)
		if err != nil {
			return err
		}

		if ref.ReservationID == uuid.Nil {
			return booking.ErrMissingIdentifier
		}

		_, err = handler.Handle(ctx, LifecycleCommand{ReservationID: ref.ReservationID, Release: release})

		return err
	}
}

// Subscribe registers the allocation and lifecycle consumers on bus.
func Subscribe(
	bus *outbox.Bus,
	allocate shell.CoreCommandHandler[Command],
	lifecycle shell.CoreCommandHandler[LifecycleCommand],
) {
	bus.Subscribe(booking.ReservationConfirmedEventType, "allocation", ConfirmedConsumer(allocate))
	bus.Subscribe(booking.ReservationStartedEventType, "allocation.lifecycle", LifecycleConsumer(lifecycle, false))
	bus.Subscribe(booking.ReservationCompletedEventType, "allocation.lifecycle", LifecycleConsumer(lifecycle, true))
	bus.Subscribe(booking.ReservationCancelledEventType, "allocation.lifecycle", LifecycleConsumer(lifecycle, true))
}

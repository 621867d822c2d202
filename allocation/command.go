package allocation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
)

// Command asks to bind Quantity units of an equipment type to one reservation line item.
type Command struct {
	ReservationID   uuid.UUID
	ItemID          uuid.UUID
	EquipmentTypeID uuid.UUID
	Quantity        int
	Window          booking.TimeRange
}

func (c Command) CommandType() string {
	return "AllocateEquipment"
}

// BuildCommand converts a ReservationConfirmed payload into a Command.
func BuildCommand(event booking.ReservationConfirmed) (Command, error) {
	if event.ReservationID == uuid.Nil || event.EquipmentTypeID == uuid.Nil {
		return Command{}, booking.ErrMissingIdentifier
	}

	if event.Quantity <= 0 {
		return Command{}, errors.Join(booking.ErrNonPositiveQuantity, fmt.Errorf("event quantity %d", event.Quantity))
	}

	window, err := booking.NewTimeRange(event.StartTime, event.EndTime)
	if err != nil {
		return Command{}, err
	}

	return Command{
		ReservationID:   event.ReservationID,
		ItemID:          event.ItemID,
		EquipmentTypeID: event.EquipmentTypeID,
		Quantity:        event.Quantity,
		Window:          window,
	}, nil
}

// LifecycleCommand moves the units bound to a reservation along with the reservation's own lifecycle.
type LifecycleCommand struct {
	ReservationID uuid.UUID
	Release       bool
}

func (c LifecycleCommand) CommandType() string {
	return "TransitionBoundEquipment"
}

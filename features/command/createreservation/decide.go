package createreservation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
)

// Validate rejects requests that can never be admitted, before any collaborator is asked.
func Validate(command Command) error {
	if command.ReservationID == uuid.Nil || command.CustomerID == uuid.Nil || command.EquipmentTypeID == uuid.Nil {
		return booking.ErrMissingIdentifier
	}

	if command.Quantity <= 0 {
		return errors.Join(booking.ErrNonPositiveQuantity, fmt.Errorf("requested %d", command.Quantity))
	}

	if command.Window.IsZero() {
		return booking.ErrInvalidTimeRange
	}

	return command.Window.ValidateNotInPast(command.OccurredAt)
}

// BuildOrder turns resolved unit ids into a Pending order with one line item that plans every unit
// for the requested window.
func BuildOrder(command Command, quote booking.Quote, unitIDs []uuid.UUID) (booking.ReservationOrder, error) {
	allocations := make([]booking.Allocation, 0, len(unitIDs))

	for _, unitID := range unitIDs {
		allocation, err := booking.NewAllocation(uuid.New(), unitID, command.Window)
		if err != nil {
			return booking.ReservationOrder{}, err
		}

		allocations = append(allocations, allocation)
	}

	item, err := booking.NewReservationOrderItem(
		uuid.New(),
		command.EquipmentTypeID,
		command.Quantity,
		command.Window,
		quote,
		allocations...,
	)
	if err != nil {
		return booking.ReservationOrder{}, err
	}

	return booking.NewReservationOrder(
		command.ReservationID,
		command.CustomerID,
		[]booking.ReservationOrderItem{item},
		command.OccurredAt,
	)
}

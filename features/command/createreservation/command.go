package createreservation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
)

const (
	commandType = "CreateReservation"
)

// Command represents the intent to reserve a quantity of one equipment type for a window.
type Command struct {
	ReservationID   uuid.UUID
	CustomerID      uuid.UUID
	EquipmentTypeID uuid.UUID
	Window          booking.TimeRange
	Quantity        int
	PromoCode       string
	OccurredAt      time.Time
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(
	reservationID uuid.UUID,
	customerID uuid.UUID,
	equipmentTypeID uuid.UUID,
	window booking.TimeRange,
	quantity int,
	promoCode string,
	occurredAt time.Time,
) Command {
	return Command{
		ReservationID:   reservationID,
		CustomerID:      customerID,
		EquipmentTypeID: equipmentTypeID,
		Window:          window,
		Quantity:        quantity,
		PromoCode:       strings.TrimSpace(promoCode),
		OccurredAt:      occurredAt.UTC(),
	}
}

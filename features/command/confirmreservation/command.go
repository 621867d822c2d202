package confirmreservation

import (
	"time"

	"github.com/google/uuid"
)

const (
	commandType = "ConfirmReservation"
)

// Command represents the intent to confirm a pending reservation.
type Command struct {
	ReservationID uuid.UUID
	OccurredAt    time.Time
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(reservationID uuid.UUID, occurredAt time.Time) Command {
	return Command{
		ReservationID: reservationID,
		OccurredAt:    occurredAt.UTC(),
	}
}

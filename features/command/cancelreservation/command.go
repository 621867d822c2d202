package cancelreservation

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	commandType = "CancelReservation"
)

// Command represents the intent to cancel a reservation.
type Command struct {
	ReservationID uuid.UUID
	Reason        string
	OccurredAt    time.Time
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(reservationID uuid.UUID, reason string, occurredAt time.Time) Command {
	return Command{
		ReservationID: reservationID,
		Reason:        strings.TrimSpace(reason),
		OccurredAt:    occurredAt.UTC(),
	}
}

package reservationsinrange

import (
	"slices"

	"github.com/Facupelli/equipment-rental/booking"
)

const (
	queryType = "ReservationsInRange"
)

// Query asks for the reservations overlapping Window.
type Query struct {
	Window   booking.TimeRange
	Statuses []booking.ReservationStatus
}

// BuildQuery creates a Query. Empty statuses default to booking.BlockingStatuses.
func BuildQuery(window booking.TimeRange, statuses []booking.ReservationStatus) Query {
	if len(statuses) == 0 {
		statuses = slices.Clone(booking.BlockingStatuses)
	}

	return Query{
		Window:   window,
		Statuses: statuses,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}

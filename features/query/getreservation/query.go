package getreservation

import (
	"github.com/google/uuid"
)

const (
	queryType = "GetReservation"
)

// Query asks for one reservation by id.
type Query struct {
	ReservationID uuid.UUID
}

// BuildQuery creates a new Query with the provided reservation ID.
func BuildQuery(reservationID uuid.UUID) Query {
	return Query{
		ReservationID: reservationID,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}

package customerreservations

import (
	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
)

const (
	queryType    = "CustomerReservations"
	DefaultLimit = 20
	MaxLimit     = 200
)

// Query asks for a page of a customer's reservations. An empty Statuses slice matches every status.
type Query struct {
	CustomerID uuid.UUID
	Statuses   []booking.ReservationStatus
	Limit      int
	Offset     int
}

// BuildQuery creates a Query. A non-positive limit becomes DefaultLimit, a larger one than MaxLimit is
// capped and a negative offset becomes zero.
func BuildQuery(customerID uuid.UUID, statuses []booking.ReservationStatus, limit, offset int) Query {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	return Query{
		CustomerID: customerID,
		Statuses:   statuses,
		Limit:      limit,
		Offset:     max(offset, 0),
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}

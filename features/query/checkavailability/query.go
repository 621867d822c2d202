package checkavailability

import (
	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
)

const (
	queryType = "CheckAvailability"
)

// Query asks whether Quantity units of EquipmentTypeID are free during Window.
type Query struct {
	EquipmentTypeID uuid.UUID
	Window          booking.TimeRange
	Quantity        int
}

// BuildQuery creates a Query.
func BuildQuery(equipmentTypeID uuid.UUID, window booking.TimeRange, quantity int) Query {
	return Query{
		EquipmentTypeID: equipmentTypeID,
		Window:          window,
		Quantity:        quantity,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}

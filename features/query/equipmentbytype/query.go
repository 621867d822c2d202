package equipmentbytype

import (
	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/inventory"
)

const (
	queryType = "EquipmentByType"
)

// Query asks for the units of an equipment type. An empty Statuses slice matches every status.
type Query struct {
	EquipmentTypeID uuid.UUID
	Statuses        []inventory.ItemStatus
}

// BuildQuery creates a new Query.
func BuildQuery(equipmentTypeID uuid.UUID, statuses []inventory.ItemStatus) Query {
	return Query{
		EquipmentTypeID: equipmentTypeID,
		Statuses:        statuses,
	}
}

// QueryType returns the query type.
func (q Query) QueryType() string {
	return queryType
}

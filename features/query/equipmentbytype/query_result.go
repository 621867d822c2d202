package equipmentbytype

import (
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/inventory"
)

// Unit is the read model of one equipment item.
type Unit struct {
	ID                     uuid.UUID            `json:"id"`
	SerialNumber           string               `json:"serialNumber"`
	Status                 inventory.ItemStatus `json:"status"`
	AllocatedReservationID *uuid.UUID           `json:"allocatedReservationId,omitempty"`
	Version                int64                `json:"version"`
	CreatedAt              time.Time            `json:"createdAt"`
}

// EquipmentByType lists the units of one equipment type.
type EquipmentByType struct {
	EquipmentTypeID uuid.UUID `json:"equipmentTypeId"`
	Units           []Unit    `json:"units"`
	Count           int       `json:"count"`
}

func fromItems(equipmentTypeID uuid.UUID, items []inventory.EquipmentItem) EquipmentByType {
	units := make([]Unit, 0, len(items))
	for _, item := range items {
		unit := Unit{
			ID:           item.ID(),
			SerialNumber: item.SerialNumber(),
			Status:       item.Status(),
			Version:      item.Version(),
			CreatedAt:    item.CreatedAt(),
		}

		if reservationID := item.AllocatedReservationID(); reservationID != uuid.Nil {
			unit.AllocatedReservationID = &reservationID
		}

		units = append(units, unit)
	}

	return EquipmentByType{
		EquipmentTypeID: equipmentTypeID,
		Units:           units,
		Count:           len(units),
	}
}

package registerequipment

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	commandType = "RegisterEquipment"
)

// Command represents the intent to add a physical unit of an equipment type to the inventory.
type Command struct {
	ItemID          uuid.UUID
	EquipmentTypeID uuid.UUID
	SerialNumber    string
	OccurredAt      time.Time
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(itemID, equipmentTypeID uuid.UUID, serialNumber string, occurredAt time.Time) Command {
	return Command{
		ItemID:          itemID,
		EquipmentTypeID: equipmentTypeID,
		SerialNumber:    strings.TrimSpace(serialNumber),
		OccurredAt:      occurredAt.UTC(),
	}
}

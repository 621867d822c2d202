package changeequipmentstatus

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/inventory"
)

const (
	commandType = "ChangeEquipmentStatus"
)

// Command represents the intent to move a unit to another status.
type Command struct {
	ItemID     uuid.UUID
	Status     inventory.ItemStatus
	Reason     string
	OccurredAt time.Time
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(itemID uuid.UUID, status inventory.ItemStatus, reason string, occurredAt time.Time) Command {
	return Command{
		ItemID:     itemID,
		Status:     status,
		Reason:     strings.TrimSpace(reason),
		OccurredAt: occurredAt.UTC(),
	}
}

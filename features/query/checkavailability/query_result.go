package checkavailability

import (
	"time"

	"github.com/google/uuid"
)

// Availability is the answer to a Check Availability query.
type Availability struct {
	EquipmentTypeID   uuid.UUID `json:"equipmentTypeId"`
	StartTime         time.Time `json:"startTime"`
	EndTime           time.Time `json:"endTime"`
	RequestedQuantity int       `json:"requestedQuantity"`
	TotalInventory    int       `json:"totalInventory"`
	IsAvailable       bool      `json:"isAvailable"`
	PeakUsage         int       `json:"peakUsage"`
	RemainingCapacity int       `json:"remainingCapacity"`
}

package availability

import (
	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
)

// UnitSchedule is one equipment unit with the windows of its blocking allocations.
type UnitSchedule struct {
	UnitID      uuid.UUID
	Allocations []booking.TimeRange
}

// IsFreeDuring reports whether no allocation of the unit overlaps window.
func (u UnitSchedule) IsFreeDuring(window booking.TimeRange) bool {
	for _, allocated := range u.Allocations {
		if allocated.Overlaps(window) {
			return false
		}
	}

	return true
}

// ResolveCandidates returns requestedQuantity ids of units that are free during window, keeping the
// order of units. Units beyond totalInventory are never considered. It returns nil when fewer than
// requestedQuantity units are free.
func ResolveCandidates(window booking.TimeRange, requestedQuantity, totalInventory int, units []UnitSchedule) ([]uuid.UUID, error) {
	if err := validateRequest(window, requestedQuantity, totalInventory); err != nil {
		return nil, err
	}

	free := make([]uuid.UUID, 0, requestedQuantity)
	for _, unit := range units {
		if unit.IsFreeDuring(window) {
			free = append(free, unit.UnitID)
		}
	}

	if len(free) > totalInventory {
		free = free[:totalInventory]
	}

	if len(free) < requestedQuantity {
		return nil, nil
	}

	return free[:requestedQuantity], nil
}

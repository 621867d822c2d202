package booking

import "github.com/google/uuid"

// Allocation binds one line item to one concrete equipment unit for a window.
// Overlap between allocations of the same unit is ruled out by the availability engine before creation.
type Allocation struct {
	id              uuid.UUID
	equipmentUnitID uuid.UUID
	window          TimeRange
}

// NewAllocation validates and builds an Allocation.
func NewAllocation(id, equipmentUnitID uuid.UUID, window TimeRange) (Allocation, error) {
	if id == uuid.Nil {
		return Allocation{}, ErrMissingIdentifier
	}

	if equipmentUnitID == uuid.Nil {
		return Allocation{}, ErrMissingEquipmentUnit
	}

	if window.IsZero() {
		return Allocation{}, ErrInvalidTimeRange
	}

	return Allocation{id: id, equipmentUnitID: equipmentUnitID, window: window}, nil
}

func (a Allocation) ID() uuid.UUID { return a.id }

func (a Allocation) EquipmentUnitID() uuid.UUID { return a.equipmentUnitID }

func (a Allocation) Window() TimeRange { return a.window }

// Conflicts reports whether a and other hold the same unit for overlapping windows.
func (a Allocation) Conflicts(other Allocation) bool {
	return a.equipmentUnitID == other.equipmentUnitID && a.window.Overlaps(other.window)
}

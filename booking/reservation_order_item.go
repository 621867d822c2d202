package booking

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ReservationOrderItem is one line of a ReservationOrder: a quantity of one equipment type for a window,
// the units allocated to it so far, and the quote it was priced at.
type ReservationOrderItem struct {
	id                uuid.UUID
	equipmentTypeID   uuid.UUID
	requestedQuantity int
	window            TimeRange
	allocations       []Allocation
	quote             Quote
}

// NewReservationOrderItem validates and builds a line item.
// It rejects more allocations than requested units, duplicate units and allocations outside the window.
func NewReservationOrderItem(
	id uuid.UUID,
	equipmentTypeID uuid.UUID,
	requestedQuantity int,
	window TimeRange,
	quote Quote,
	allocations ...Allocation,
) (ReservationOrderItem, error) {
	if id == uuid.Nil || equipmentTypeID == uuid.Nil {
		return ReservationOrderItem{}, ErrMissingIdentifier
	}

	if requestedQuantity <= 0 {
		return ReservationOrderItem{}, errors.Join(ErrNonPositiveQuantity, fmt.Errorf("requested %d", requestedQuantity))
	}

	if window.IsZero() {
		return ReservationOrderItem{}, ErrInvalidTimeRange
	}

	if len(allocations) > requestedQuantity {
		return ReservationOrderItem{}, errors.Join(
			ErrTooManyAllocations,
			fmt.Errorf("%d allocations for %d requested units", len(allocations), requestedQuantity),
		)
	}

	item := ReservationOrderItem{
		id:                id,
		equipmentTypeID:   equipmentTypeID,
		requestedQuantity: requestedQuantity,
		window:            window,
		quote:             quote,
		allocations:       make([]Allocation, 0, requestedQuantity),
	}

	for _, allocation := range allocations {
		var err error
		if item, err = item.Allocate(allocation); err != nil {
			return ReservationOrderItem{}, err
		}
	}

	return item, nil
}

func (i ReservationOrderItem) ID() uuid.UUID { return i.id }

func (i ReservationOrderItem) EquipmentTypeID() uuid.UUID { return i.equipmentTypeID }

func (i ReservationOrderItem) RequestedQuantity() int { return i.requestedQuantity }

func (i ReservationOrderItem) Window() TimeRange { return i.window }

func (i ReservationOrderItem) Quote() Quote { return i.quote }

// Allocations returns a copy of the item's allocations.
func (i ReservationOrderItem) Allocations() []Allocation {
	out := make([]Allocation, len(i.allocations))
	copy(out, i.allocations)

	return out
}

// IsFullyAllocated reports whether every requested unit has an allocation.
func (i ReservationOrderItem) IsFullyAllocated() bool {
	return len(i.allocations) == i.requestedQuantity
}

// Allocate returns a copy of the item with the allocation appended.
func (i ReservationOrderItem) Allocate(allocation Allocation) (ReservationOrderItem, error) {
	if i.IsFullyAllocated() {
		return ReservationOrderItem{}, errors.Join(
			ErrItemFullyAllocated,
			fmt.Errorf("item %s has %d of %d units", i.id, len(i.allocations), i.requestedQuantity),
		)
	}

	if !allocation.Window().Equal(i.window) {
		return ReservationOrderItem{}, errors.Join(
			ErrAllocationOutsideWindow,
			fmt.Errorf("allocation %s, item %s", allocation.Window(), i.window),
		)
	}

	for _, existing := range i.allocations {
		if existing.EquipmentUnitID() == allocation.EquipmentUnitID() {
			return ReservationOrderItem{}, fmt.Errorf("unit %s is already allocated to item %s", allocation.EquipmentUnitID(), i.id)
		}
	}

	next := i
	next.allocations = append(make([]Allocation, 0, i.requestedQuantity), i.allocations...)
	next.allocations = append(next.allocations, allocation)

	return next, nil
}

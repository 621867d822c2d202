package inventory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemStatus is the physical state of an equipment unit.
type ItemStatus string

const (
	StatusAvailable   ItemStatus = "Available"
	StatusAllocated   ItemStatus = "Allocated"
	StatusInUse       ItemStatus = "InUse"
	StatusMaintenance ItemStatus = "Maintenance"
	StatusLost        ItemStatus = "Lost"
	StatusRetired     ItemStatus = "Retired"
)

// RentableStatuses are the statuses of units counted as rental capacity.
var RentableStatuses = []ItemStatus{StatusAvailable, StatusAllocated, StatusInUse}

var (
	// ErrInvalidStatusTransition is returned when an item cannot move from its status to the requested one.
	ErrInvalidStatusTransition = errors.New("invalid equipment item status transition")

	// ErrReasonRequired is returned when a maintenance, loss or retirement transition has no reason.
	ErrReasonRequired = errors.New("status change reason is required")

	// ErrMissingSerialNumber is returned when registering an item without a serial number.
	ErrMissingSerialNumber = errors.New("serial number is required")

	// ErrMissingEquipmentType is returned when registering an item without an equipment type.
	ErrMissingEquipmentType = errors.New("equipment type is required")

	// ErrEquipmentItemNotFound is returned when no equipment item exists for an identifier.
	ErrEquipmentItemNotFound = errors.New("equipment item not found")

	// ErrItemBoundToOtherReservation is returned when an item is released for a reservation it is not bound to.
	ErrItemBoundToOtherReservation = errors.New("equipment item is bound to another reservation")
)

// ParseItemStatus converts a stored or user-supplied string into an ItemStatus.
func ParseItemStatus(s string) (ItemStatus, error) {
	switch status := ItemStatus(s); status {
	case StatusAvailable, StatusAllocated, StatusInUse, StatusMaintenance, StatusLost, StatusRetired:
		return status, nil
	default:
		return "", fmt.Errorf("unknown equipment item status %q", s)
	}
}

// ReasonRegistered is the reason of the first history entry of every item.
const ReasonRegistered = "Equipment registered in system"

// StatusChange is one entry of an item's status history.
// The registration entry has an empty From.
type StatusChange struct {
	ID        uuid.UUID
	From      ItemStatus
	To        ItemStatus
	Reason    string
	ChangedAt time.Time
}

// EquipmentItem is one concrete rentable unit of an equipment type.
type EquipmentItem struct {
	id                     uuid.UUID
	equipmentTypeID        uuid.UUID
	serialNumber           string
	status                 ItemStatus
	allocatedReservationID uuid.UUID
	version                int64
	createdAt              time.Time
	pendingChanges         []StatusChange
}

// RegisterEquipmentItem builds a new Available unit with version 1.
func RegisterEquipmentItem(id, equipmentTypeID uuid.UUID, serialNumber string, at time.Time) (EquipmentItem, error) {
	if id == uuid.Nil {
		return EquipmentItem{}, errors.New("equipment item id is required")
	}

	if equipmentTypeID == uuid.Nil {
		return EquipmentItem{}, ErrMissingEquipmentType
	}

	if strings.TrimSpace(serialNumber) == "" {
		return EquipmentItem{}, ErrMissingSerialNumber
	}

	return EquipmentItem{
		id:              id,
		equipmentTypeID: equipmentTypeID,
		serialNumber:    strings.TrimSpace(serialNumber),
		status:          StatusAvailable,
		version:         1,
		createdAt:       at.UTC(),
		pendingChanges:  []StatusChange{{
			ID:        uuid.New(),
			To:        StatusAvailable,
			Reason:    ReasonRegistered,
			ChangedAt: at.UTC(),
		}},
	}, nil
}

// ReconstituteEquipmentItem rebuilds an item from persisted state.
func ReconstituteEquipmentItem(
	id uuid.UUID,
	equipmentTypeID uuid.UUID,
	serialNumber string,
	status ItemStatus,
	allocatedReservationID uuid.UUID,
	version int64,
	createdAt time.Time,
) EquipmentItem {
	return EquipmentItem{
		id:                     id,
		equipmentTypeID:        equipmentTypeID,
		serialNumber:           serialNumber,
		status:                 status,
		allocatedReservationID: allocatedReservationID,
		version:                version,
		createdAt:              createdAt.UTC(),
	}
}

func (i EquipmentItem) ID() uuid.UUID { return i.id }

func (i EquipmentItem) EquipmentTypeID() uuid.UUID { return i.equipmentTypeID }

func (i EquipmentItem) SerialNumber() string { return i.serialNumber }

func (i EquipmentItem) Status() ItemStatus { return i.status }

// AllocatedReservationID returns the reservation the unit is bound to, or uuid.Nil.
func (i EquipmentItem) AllocatedReservationID() uuid.UUID { return i.allocatedReservationID }

// Version returns the version this snapshot was read at.
func (i EquipmentItem) Version() int64 { return i.version }

func (i EquipmentItem) CreatedAt() time.Time { return i.createdAt }

// PendingStatusChanges returns the history entries not yet persisted.
func (i EquipmentItem) PendingStatusChanges() []StatusChange {
	out := make([]StatusChange, len(i.pendingChanges))
	copy(out, i.pendingChanges)

	return out
}

// MarkAllocated binds an Available unit to a reservation.
func (i EquipmentItem) MarkAllocated(reservationID uuid.UUID, at time.Time) (EquipmentItem, error) {
	if reservationID == uuid.Nil {
		return EquipmentItem{}, errors.New("reservation id is required to allocate an item")
	}

	if i.status != StatusAvailable {
		return EquipmentItem{}, i.transitionError(StatusAllocated)
	}

	next := i.transition(StatusAllocated, "allocated to reservation "+reservationID.String(), at)
	next.allocatedReservationID = reservationID

	return next, nil
}

// MarkInUse records the hand-over of an Allocated unit.
func (i EquipmentItem) MarkInUse(at time.Time) (EquipmentItem, error) {
	if i.status != StatusAllocated {
		return EquipmentItem{}, i.transitionError(StatusInUse)
	}

	return i.transition(StatusInUse, "handed over for reservation "+i.allocatedReservationID.String(), at), nil
}

// Release unbinds an Allocated or InUse unit from its reservation and makes it Available again.
func (i EquipmentItem) Release(reservationID uuid.UUID, at time.Time) (EquipmentItem, error) {
	if i.status != StatusAllocated && i.status != StatusInUse {
		return EquipmentItem{}, i.transitionError(StatusAvailable)
	}

	if i.allocatedReservationID != reservationID {
		return EquipmentItem{}, errors.Join(
			ErrItemBoundToOtherReservation,
			fmt.Errorf("item %s is bound to %s, not %s", i.id, i.allocatedReservationID, reservationID),
		)
	}

	next := i.transition(StatusAvailable, "released from reservation "+reservationID.String(), at)
	next.allocatedReservationID = uuid.Nil

	return next, nil
}

// MarkAvailable returns a unit from Maintenance or Lost to the rentable pool.
func (i EquipmentItem) MarkAvailable(reason string, at time.Time) (EquipmentItem, error) {
	if i.status != StatusMaintenance && i.status != StatusLost {
		return EquipmentItem{}, i.transitionError(StatusAvailable)
	}

	return i.transition(StatusAvailable, reason, at), nil
}

// MarkInMaintenance takes an unbound Available unit out of the rentable pool.
func (i EquipmentItem) MarkInMaintenance(reason string, at time.Time) (EquipmentItem, error) {
	return i.takeOutOfService(StatusMaintenance, reason, at, StatusAvailable)
}

// MarkLost records that a unit can no longer be found.
func (i EquipmentItem) MarkLost(reason string, at time.Time) (EquipmentItem, error) {
	return i.takeOutOfService(StatusLost, reason, at, StatusAvailable, StatusInUse, StatusMaintenance)
}

// Retire permanently removes a unit from service.
func (i EquipmentItem) Retire(reason string, at time.Time) (EquipmentItem, error) {
	return i.takeOutOfService(StatusRetired, reason, at, StatusAvailable, StatusMaintenance, StatusLost)
}

// ChangeStatus dispatches an operator-requested status change to the matching transition.
func (i EquipmentItem) ChangeStatus(to ItemStatus, reason string, at time.Time) (EquipmentItem, error) {
	switch to {
	case StatusAvailable:
		return i.MarkAvailable(reason, at)
	case StatusMaintenance:
		return i.MarkInMaintenance(reason, at)
	case StatusLost:
		return i.MarkLost(reason, at)
	case StatusRetired:
		return i.Retire(reason, at)
	default:
		return EquipmentItem{}, errors.Join(
			ErrInvalidStatusTransition,
			fmt.Errorf("status %s is only reachable through the reservation lifecycle", to),
		)
	}
}

func (i EquipmentItem) takeOutOfService(to ItemStatus, reason string, at time.Time, from ...ItemStatus) (EquipmentItem, error) {
	if strings.TrimSpace(reason) == "" {
		return EquipmentItem{}, ErrReasonRequired
	}

	for _, allowed := range from {
		if i.status == allowed {
			next := i.transition(to, reason, at)
			next.allocatedReservationID = uuid.Nil

			return next, nil
		}
	}

	return EquipmentItem{}, i.transitionError(to)
}

func (i EquipmentItem) transition(to ItemStatus, reason string, at time.Time) EquipmentItem {
	next := i
	next.pendingChanges = append(make([]StatusChange, 0, len(i.pendingChanges)+1), i.pendingChanges...)
	next.pendingChanges = append(next.pendingChanges, StatusChange{
		ID:        uuid.New(),
		From:      i.status,
		To:        to,
		Reason:    strings.TrimSpace(reason),
		ChangedAt: at.UTC(),
	})
	next.status = to

	return next
}

func (i EquipmentItem) transitionError(to ItemStatus) error {
	return errors.Join(
		ErrInvalidStatusTransition,
		fmt.Errorf("item %s cannot move from %s to %s", i.id, i.status, to),
	)
}

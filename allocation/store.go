package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/store"
)

// CandidateQuery selects units for one line item.
type CandidateQuery struct {
	ReservationID   uuid.UUID
	EquipmentTypeID uuid.UUID
	Window          booking.TimeRange
	Turnaround      time.Duration
	Limit           int
}

// Store is the persistence the allocation handlers need. Every call receives the handler's transaction.
type Store interface {
	InTransaction(ctx context.Context, fn store.TxFunc) error
	FindReservationStatus(ctx context.Context, h store.Handle, reservationID uuid.UUID) (booking.ReservationStatus, error)

	// FindEquipmentItemsByReservation returns the units bound to the reservation.
	// A nil equipmentTypeID matches every type.
	FindEquipmentItemsByReservation(
		ctx context.Context,
		h store.Handle,
		reservationID uuid.UUID,
		equipmentTypeID uuid.UUID,
	) ([]inventory.EquipmentItem, error)

	// FindAllocationCandidates returns Available units of the type, oldest first, that have no
	// allocation overlapping the window in another blocking reservation. Units already planned for
	// this reservation come first.
	FindAllocationCandidates(ctx context.Context, h store.Handle, query CandidateQuery) ([]inventory.EquipmentItem, error)

	// SaveEquipmentItems persists the items conditioned on their versions and fails with
	// store.ErrConcurrencyConflict when any version moved.
	SaveEquipmentItems(ctx context.Context, h store.Handle, items ...inventory.EquipmentItem) error

	// ReplaceItemAllocations makes the allocations of a line item match the bound units.
	ReplaceItemAllocations(ctx context.Context, h store.Handle, itemID uuid.UUID, allocations []booking.Allocation) error
}

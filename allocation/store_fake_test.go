package allocation_test

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/allocation"
	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/store"
)

// storeFake keeps committed state and gives every transaction a private write set.
// Reads see the latest committed state overlaid with the transaction's own writes.
type storeFake struct {
	mu           sync.Mutex
	items        map[uuid.UUID]inventory.EquipmentItem
	statuses     map[uuid.UUID]booking.ReservationStatus
	allocations  map[uuid.UUID][]booking.Allocation
	saves        int
	beforeSave   func()
	failOnSave   error
	transactions int
}

type txFake struct {
	items       map[uuid.UUID]inventory.EquipmentItem
	allocations map[uuid.UUID][]booking.Allocation
}

func (txFake) Query(context.Context, string, ...any) (store.Rows, error)   { return nil, nil }
func (txFake) Exec(context.Context, string, ...any) (store.Result, error) { return nil, nil }

func newStoreFake() *storeFake {
	return &storeFake{
		items:       make(map[uuid.UUID]inventory.EquipmentItem),
		statuses:    make(map[uuid.UUID]booking.ReservationStatus),
		allocations: make(map[uuid.UUID][]booking.Allocation),
	}
}

func (s *storeFake) addAvailableUnits(typeID uuid.UUID, count int) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, count)
	for i := range count {
		id := uuid.New()
		item := inventory.ReconstituteEquipmentItem(id, typeID, "SN-"+id.String()[:8], inventory.StatusAvailable,
			uuid.Nil, 1, baseTime.Add(time.Duration(i)*time.Minute))
		s.items[id] = item
		ids = append(ids, id)
	}

	return ids
}

func (s *storeFake) setStatus(reservationID uuid.UUID, status booking.ReservationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses[reservationID] = status
}

func (s *storeFake) item(id uuid.UUID) inventory.EquipmentItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.items[id]
}

func (s *storeFake) boundTo(reservationID uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for id, item := range s.items {
		if item.AllocatedReservationID() == reservationID {
			ids = append(ids, id)
		}
	}

	return ids
}

func (s *storeFake) itemAllocations(itemID uuid.UUID) []booking.Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.allocations[itemID]
}

func (s *storeFake) InTransaction(ctx context.Context, fn store.TxFunc) error {
	s.mu.Lock()
	s.transactions++
	s.mu.Unlock()

	tx := &txFake{
		items:       make(map[uuid.UUID]inventory.EquipmentItem),
		allocations: make(map[uuid.UUID][]booking.Allocation),
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	maps.Copy(s.items, tx.items)
	maps.Copy(s.allocations, tx.allocations)

	return nil
}

func (s *storeFake) visibleItems(h store.Handle) []inventory.EquipmentItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := maps.Clone(s.items)
	if tx, ok := h.(*txFake); ok {
		maps.Copy(merged, tx.items)
	}

	items := slices.Collect(maps.Values(merged))
	slices.SortFunc(items, func(a, b inventory.EquipmentItem) int { return a.CreatedAt().Compare(b.CreatedAt()) })

	return items
}

func (s *storeFake) FindReservationStatus(_ context.Context, _ store.Handle, reservationID uuid.UUID) (booking.ReservationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[reservationID]
	if !ok {
		return "", booking.ErrReservationNotFound
	}

	return status, nil
}

func (s *storeFake) FindEquipmentItemsByReservation(
	_ context.Context,
	h store.Handle,
	reservationID uuid.UUID,
	equipmentTypeID uuid.UUID,
) ([]inventory.EquipmentItem, error) {
	var found []inventory.EquipmentItem

	for _, item := range s.visibleItems(h) {
		if item.AllocatedReservationID() != reservationID {
			continue
		}

		if equipmentTypeID != uuid.Nil && item.EquipmentTypeID() != equipmentTypeID {
			continue
		}

		found = append(found, item)
	}

	return found, nil
}

func (s *storeFake) FindAllocationCandidates(
	_ context.Context,
	h store.Handle,
	query allocation.CandidateQuery,
) ([]inventory.EquipmentItem, error) {
	var found []inventory.EquipmentItem

	for _, item := range s.visibleItems(h) {
		if item.EquipmentTypeID() == query.EquipmentTypeID && item.Status() == inventory.StatusAvailable {
			found = append(found, item)
		}

		if len(found) == query.Limit {
			break
		}
	}

	return found, nil
}

func (s *storeFake) SaveEquipmentItems(_ context.Context, h store.Handle, items ...inventory.EquipmentItem) error {
	s.mu.Lock()
	hook := s.beforeSave
	s.beforeSave = nil
	failure := s.failOnSave
	s.mu.Unlock()

	if hook != nil {
		hook()
	}

	if failure != nil {
		return failure
	}

	tx := h.(*txFake)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++

	for _, item := range items {
		current, ok := tx.items[item.ID()]
		if !ok {
			current = s.items[item.ID()]
		}

		if current.Version() != item.Version() {
			return store.ErrConcurrencyConflict
		}

		tx.items[item.ID()] = inventory.ReconstituteEquipmentItem(
			item.ID(), item.EquipmentTypeID(), item.SerialNumber(), item.Status(),
			item.AllocatedReservationID(), item.Version()+1, item.CreatedAt(),
		)
	}

	return nil
}

func (s *storeFake) ReplaceItemAllocations(_ context.Context, h store.Handle, itemID uuid.UUID, allocations []booking.Allocation) error {
	tx := h.(*txFake)
	tx.allocations[itemID] = allocations

	return nil
}

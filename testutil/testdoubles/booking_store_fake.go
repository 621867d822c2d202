package testdoubles

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/outbox"
	"github.com/Facupelli/equipment-rental/store"
)

// Names of the BookingStoreFake methods that accept injected failures.
const (
	MethodInsertReservationOrder  = "InsertReservationOrder"
	MethodUpdateReservationStatus = "UpdateReservationStatus"
	MethodAppendOutboxEvents      = "AppendOutboxEvents"
	MethodSaveEquipmentItems      = "SaveEquipmentItems"
	MethodFindReservationOrder    = "FindReservationOrder"
)

type customerRecord struct {
	name      string
	email     string
	createdAt time.Time
}

type bookingState struct {
	customers map[uuid.UUID]customerRecord
	orders    map[uuid.UUID]booking.ReservationOrder
	items     map[uuid.UUID]inventory.EquipmentItem
	history   map[uuid.UUID][]inventory.StatusChange
	events    []outbox.Event
}

func (s bookingState) clone() bookingState {
	history := make(map[uuid.UUID][]inventory.StatusChange, len(s.history))
	for id, changes := range s.history {
		history[id] = slices.Clone(changes)
	}

	return bookingState{
		customers: maps.Clone(s.customers),
		orders:    maps.Clone(s.orders),
		items:     maps.Clone(s.items),
		history:   history,
		events:    slices.Clone(s.events),
	}
}

type txHandle struct{}

func (txHandle) Query(context.Context, string, ...any) (store.Rows, error)   { return nil, nil }
func (txHandle) Exec(context.Context, string, ...any) (store.Result, error) { return nil, nil }

// BookingStoreFake is an in-memory stand-in for postgresengine.Store covering customers, reservation
// orders, equipment items and the outbox. Transactions are serialized; a transaction whose function
// fails is rolled back to the state it started from.
type BookingStoreFake struct {
	txMu         sync.Mutex
	mu           sync.Mutex
	state        bookingState
	failures     map[string][]error
	locks        []uuid.UUID
	transactions int
}

// NewBookingStoreFake creates an empty BookingStoreFake.
func NewBookingStoreFake() *BookingStoreFake {
	return &BookingStoreFake{
		state: bookingState{
			customers: make(map[uuid.UUID]customerRecord),
			orders:    make(map[uuid.UUID]booking.ReservationOrder),
			items:     make(map[uuid.UUID]inventory.EquipmentItem),
			history:   make(map[uuid.UUID][]inventory.StatusChange),
		},
		failures: make(map[string][]error),
	}
}

// FailNext makes the next call of method return err. Calls queue up in order.
func (f *BookingStoreFake) FailNext(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[method] = append(f.failures[method], err)
}

func (f *BookingStoreFake) injected(method string) error {
	queued := f.failures[method]
	if len(queued) == 0 {
		return nil
	}

	f.failures[method] = queued[1:]

	return queued[0]
}

// InTransaction runs fn and rolls its writes back when it fails.
func (f *BookingStoreFake) InTransaction(ctx context.Context, fn store.TxFunc) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	f.transactions++
	snapshot := f.state.clone()
	f.mu.Unlock()

	if err := fn(ctx, txHandle{}); err != nil {
		f.mu.Lock()
		f.state = snapshot
		f.mu.Unlock()

		return err
	}

	return nil
}

// Transactions returns how many transactions were started.
func (f *BookingStoreFake) Transactions() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.transactions
}

// GivenCustomer registers a customer directly and returns its id.
func (f *BookingStoreFake) GivenCustomer() uuid.UUID {
	id := uuid.New()

	f.mu.Lock()
	defer f.mu.Unlock()

	f.state.customers[id] = customerRecord{name: "Customer", email: id.String() + "@example.com"}

	return id
}

// GivenUnits registers count Available units of the type, one minute apart, and returns their ids.
func (f *BookingStoreFake) GivenUnits(equipmentTypeID uuid.UUID, count int, createdAt time.Time) []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()

	ids := make([]uuid.UUID, 0, count)
	for i := range count {
		id := uuid.New()
		f.state.items[id] = inventory.ReconstituteEquipmentItem(
			id, equipmentTypeID, "SN-"+id.String()[:8], inventory.StatusAvailable, uuid.Nil, 1,
			createdAt.Add(time.Duration(i)*time.Minute),
		)
		ids = append(ids, id)
	}

	return ids
}

// GivenOrder stores order as it is.
func (f *BookingStoreFake) GivenOrder(order booking.ReservationOrder) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.state.orders[order.ID()] = order
}

// Order returns the stored order.
func (f *BookingStoreFake) Order(id uuid.UUID) (booking.ReservationOrder, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.state.orders[id]

	return order, ok
}

// Item returns the stored equipment item.
func (f *BookingStoreFake) Item(id uuid.UUID) (inventory.EquipmentItem, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.state.items[id]

	return item, ok
}

// Events returns every staged outbox event in staging order.
func (f *BookingStoreFake) Events() []outbox.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.state.events)
}

// EventsOfType returns the staged outbox events of one type.
func (f *BookingStoreFake) EventsOfType(eventType string) []outbox.Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	matching := make([]outbox.Event, 0)
	for _, event := range f.state.events {
		if event.EventType == eventType {
			matching = append(matching, event)
		}
	}

	return matching
}

// LockedTypes returns the equipment types LockEquipmentType was called with.
func (f *BookingStoreFake) LockedTypes() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.locks)
}

func (f *BookingStoreFake) CustomerExists(_ context.Context, _ store.Handle, customerID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.state.customers[customerID]

	return ok, nil
}

func (f *BookingStoreFake) RegisterCustomer(
	_ context.Context,
	_ store.Handle,
	customerID uuid.UUID,
	name, email string,
	at time.Time,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, customer := range f.state.customers {
		if id == customerID || strings.EqualFold(customer.email, email) {
			return errors.Join(store.ErrDuplicateKey, fmt.Errorf("customer %s", email))
		}
	}

	f.state.customers[customerID] = customerRecord{name: name, email: email, createdAt: at}

	return nil
}

func (f *BookingStoreFake) LockEquipmentType(_ context.Context, _ store.Handle, equipmentTypeID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.locks = append(f.locks, equipmentTypeID)

	return nil
}

func (f *BookingStoreFake) CountRentableUnits(_ context.Context, _ store.Handle, equipmentTypeID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, item := range f.state.items {
		if item.EquipmentTypeID() == equipmentTypeID && slices.Contains(inventory.RentableStatuses, item.Status()) {
			count++
		}
	}

	return count, nil
}

func (f *BookingStoreFake) InsertReservationOrder(_ context.Context, _ store.Handle, order booking.ReservationOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.injected(MethodInsertReservationOrder); err != nil {
		return err
	}

	if _, exists := f.state.orders[order.ID()]; exists {
		return errors.Join(store.ErrDuplicateKey, fmt.Errorf("reservation %s", order.ID()))
	}

	f.state.orders[order.ID()] = order

	return nil
}

func (f *BookingStoreFake) FindReservationOrder(_ context.Context, _ store.Handle, reservationID uuid.UUID) (booking.ReservationOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.injected(MethodFindReservationOrder); err != nil {
		return booking.ReservationOrder{}, err
	}

	order, ok := f.state.orders[reservationID]
	if !ok {
		return booking.ReservationOrder{}, notFound(reservationID)
	}

	return order, nil
}

func (f *BookingStoreFake) FindReservationStatus(
	_ context.Context,
	_ store.Handle,
	reservationID uuid.UUID,
) (booking.ReservationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.state.orders[reservationID]
	if !ok {
		return "", notFound(reservationID)
	}

	return order.Status(), nil
}

func (f *BookingStoreFake) UpdateReservationStatus(
	_ context.Context,
	_ store.Handle,
	order booking.ReservationOrder,
	prior booking.ReservationStatus,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.injected(MethodUpdateReservationStatus); err != nil {
		return err
	}

	stored, ok := f.state.orders[order.ID()]
	if !ok || stored.Status() != prior {
		return errors.Join(store.ErrConcurrencyConflict, fmt.Errorf("reservation %s", order.ID()))
	}

	f.state.orders[order.ID()] = order

	return nil
}

func (f *BookingStoreFake) FindCustomerReservations(
	_ context.Context,
	_ store.Handle,
	customerID uuid.UUID,
	statuses []booking.ReservationStatus,
	limit, offset int,
) ([]booking.ReservationOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matching := make([]booking.ReservationOrder, 0)
	for _, order := range f.state.orders {
		if order.CustomerID() == customerID && matchesStatus(order, statuses) {
			matching = append(matching, order)
		}
	}

	slices.SortFunc(matching, func(a, b booking.ReservationOrder) int {
		if c := b.CreatedAt().Compare(a.CreatedAt()); c != 0 {
			return c
		}

		return strings.Compare(a.ID().String(), b.ID().String())
	})

	if offset >= len(matching) {
		return []booking.ReservationOrder{}, nil
	}

	return matching[offset:min(offset+limit, len(matching))], nil
}

func (f *BookingStoreFake) FindReservationsInRange(
	_ context.Context,
	_ store.Handle,
	window booking.TimeRange,
	statuses []booking.ReservationStatus,
) ([]booking.ReservationOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matching := make([]booking.ReservationOrder, 0)
	for _, order := range f.state.orders {
		if !matchesStatus(order, statuses) {
			continue
		}

		if slices.ContainsFunc(order.Items(), func(item booking.ReservationOrderItem) bool {
			return item.Window().Overlaps(window)
		}) {
			matching = append(matching, order)
		}
	}

	slices.SortFunc(matching, func(a, b booking.ReservationOrder) int {
		if c := a.CreatedAt().Compare(b.CreatedAt()); c != 0 {
			return c
		}

		return strings.Compare(a.ID().String(), b.ID().String())
	})

	return matching, nil
}

func (f *BookingStoreFake) AppendOutboxEvents(_ context.Context, _ store.Handle, events ...outbox.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.injected(MethodAppendOutboxEvents); err != nil {
		return err
	}

	f.state.events = append(f.state.events, events...)

	return nil
}

func (f *BookingStoreFake) InsertEquipmentItem(_ context.Context, _ store.Handle, item inventory.EquipmentItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.state.items {
		if existing.ID() == item.ID() || existing.SerialNumber() == item.SerialNumber() {
			return errors.Join(store.ErrDuplicateKey, fmt.Errorf("serial number %s", item.SerialNumber()))
		}
	}

	f.state.items[item.ID()] = f.withoutPending(item, item.Version())

	return nil
}

func (f *BookingStoreFake) FindEquipmentItem(_ context.Context, _ store.Handle, itemID uuid.UUID) (inventory.EquipmentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.state.items[itemID]
	if !ok {
		return inventory.EquipmentItem{}, errors.Join(
			inventory.ErrEquipmentItemNotFound,
			store.ErrNotFound,
			fmt.Errorf("equipment item %s", itemID),
		)
	}

	return item, nil
}

func (f *BookingStoreFake) FindEquipmentItemsByType(
	_ context.Context,
	_ store.Handle,
	equipmentTypeID uuid.UUID,
	statuses []inventory.ItemStatus,
) ([]inventory.EquipmentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items := make([]inventory.EquipmentItem, 0)
	for _, item := range f.state.items {
		if item.EquipmentTypeID() == equipmentTypeID && (len(statuses) == 0 || slices.Contains(statuses, item.Status())) {
			items = append(items, item)
		}
	}

	slices.SortFunc(items, func(a, b inventory.EquipmentItem) int {
		if c := a.CreatedAt().Compare(b.CreatedAt()); c != 0 {
			return c
		}

		return strings.Compare(a.ID().String(), b.ID().String())
	})

	return items, nil
}

func (f *BookingStoreFake) SaveEquipmentItems(_ context.Context, _ store.Handle, items ...inventory.EquipmentItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.injected(MethodSaveEquipmentItems); err != nil {
		return err
	}

	for _, item := range items {
		stored, ok := f.state.items[item.ID()]
		if !ok || stored.Version() != item.Version() {
			return errors.Join(store.ErrConcurrencyConflict, fmt.Errorf("equipment item %s", item.ID()))
		}

		f.state.items[item.ID()] = f.withoutPending(item, item.Version()+1)
	}

	return nil
}

func (f *BookingStoreFake) FindEquipmentStatusHistory(_ context.Context, _ store.Handle, itemID uuid.UUID) ([]inventory.StatusChange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.state.history[itemID]), nil
}

// withoutPending moves the item's pending status changes into the history and returns the stored form.
func (f *BookingStoreFake) withoutPending(item inventory.EquipmentItem, version int64) inventory.EquipmentItem {
	for _, change := range item.PendingStatusChanges() {
		recorded := slices.ContainsFunc(f.state.history[item.ID()], func(c inventory.StatusChange) bool { return c.ID == change.ID })
		if !recorded {
			f.state.history[item.ID()] = append(f.state.history[item.ID()], change)
		}
	}

	return inventory.ReconstituteEquipmentItem(
		item.ID(),
		item.EquipmentTypeID(),
		item.SerialNumber(),
		item.Status(),
		item.AllocatedReservationID(),
		version,
		item.CreatedAt(),
	)
}

func matchesStatus(order booking.ReservationOrder, statuses []booking.ReservationStatus) bool {
	return len(statuses) == 0 || slices.Contains(statuses, order.Status())
}

func notFound(reservationID uuid.UUID) error {
	return errors.Join(booking.ErrReservationNotFound, store.ErrNotFound, fmt.Errorf("reservation %s", reservationID))
}

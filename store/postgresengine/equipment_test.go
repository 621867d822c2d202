package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Facupelli/equipment-rental/allocation"
	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/store"
	"github.com/Facupelli/equipment-rental/testutil/pgtest"
)

func Test_InsertEquipmentItem_DuplicateSerialFails(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()
	first, err := inventory.RegisterEquipmentItem(uuid.New(), uuid.New(), "CAM-0001", fixtureStart)
	require.NoError(t, err)
	second, err := inventory.RegisterEquipmentItem(uuid.New(), uuid.New(), "CAM-0001", fixtureStart)
	require.NoError(t, err)
	require.NoError(t, s.InsertEquipmentItem(context.Background(), nil, first))

	// act
	err = s.InsertEquipmentItem(context.Background(), nil, second)

	// assert
	assert.ErrorIs(t, err, store.ErrDuplicateKey)
}

func Test_FindEquipmentItem_Unknown(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()

	// act
	_, err := s.FindEquipmentItem(context.Background(), nil, uuid.New())

	// assert
	assert.ErrorIs(t, err, inventory.ErrEquipmentItemNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func Test_SaveEquipmentItems_BumpsVersionAndWritesHistory(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()
	ctx := context.Background()
	item := givenUnits(t, s, uuid.New(), 1)[0]

	inMaintenance, err := item.MarkInMaintenance("lens cleaning", fixtureStart.Add(time.Hour))
	require.NoError(t, err)

	// act
	err = s.SaveEquipmentItems(ctx, nil, inMaintenance)

	// assert
	require.NoError(t, err)

	found, err := s.FindEquipmentItem(ctx, nil, item.ID())
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusMaintenance, found.Status())
	assert.Equal(t, item.Version()+1, found.Version())

	history, err := s.FindEquipmentStatusHistory(ctx, nil, item.ID())
	require.NoError(t, err)
	require.Len(t, history, 2, "the registration entry is written once")
	assert.Equal(t, inventory.ReasonRegistered, history[0].Reason)
	assert.Equal(t, inventory.StatusAvailable, history[1].From)
	assert.Equal(t, inventory.StatusMaintenance, history[1].To)
	assert.Equal(t, "lens cleaning", history[1].Reason)
}

func Test_InsertEquipmentItem_WritesRegistrationHistory(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()
	ctx := context.Background()
	item, err := inventory.RegisterEquipmentItem(uuid.New(), uuid.New(), "CAM-0002", fixtureStart)
	require.NoError(t, err)

	// act
	err = s.InsertEquipmentItem(ctx, nil, item)

	// assert
	require.NoError(t, err)

	history, err := s.FindEquipmentStatusHistory(ctx, nil, item.ID())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Empty(t, history[0].From)
	assert.Equal(t, inventory.StatusAvailable, history[0].To)
	assert.Equal(t, inventory.ReasonRegistered, history[0].Reason)
	assert.True(t, fixtureStart.Equal(history[0].ChangedAt))
}

func Test_SaveEquipmentItems_StaleVersionConflicts(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()
	ctx := context.Background()
	customerID := givenCustomer(t, s)
	typeID := uuid.New()
	item := givenUnits(t, s, typeID, 1)[0]
	order := givenOrder(t, s, buildOrder(t, customerID, fixtureStart, orderLine{
		equipmentTypeID: typeID, quantity: 1, window: booking.MustTimeRange(day(1), day(2)),
	}))

	winner, err := item.MarkAllocated(order.ID(), fixtureStart)
	require.NoError(t, err)
	require.NoError(t, s.SaveEquipmentItems(ctx, nil, winner))

	loser, err := item.MarkInMaintenance("inspection", fixtureStart)
	require.NoError(t, err)

	// act
	err = s.SaveEquipmentItems(ctx, nil, loser)

	// assert
	assert.ErrorIs(t, err, store.ErrConcurrencyConflict)

	found, err := s.FindEquipmentItem(ctx, nil, item.ID())
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusAllocated, found.Status())
	assert.Equal(t, order.ID(), found.AllocatedReservationID())
}

func Test_SaveEquipmentItems_ConflictInTransactionLeavesNothingAllocated(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()
	ctx := context.Background()
	customerID := givenCustomer(t, s)
	typeID := uuid.New()
	units := givenUnits(t, s, typeID, 2)
	order := givenOrder(t, s, buildOrder(t, customerID, fixtureStart, orderLine{
		equipmentTypeID: typeID, quantity: 2, window: booking.MustTimeRange(day(1), day(2)),
	}))

	first, err := units[0].MarkAllocated(order.ID(), fixtureStart)
	require.NoError(t, err)
	second, err := units[1].MarkAllocated(order.ID(), fixtureStart)
	require.NoError(t, err)

	concurrent, err := units[1].MarkInMaintenance("dropped", fixtureStart)
	require.NoError(t, err)
	require.NoError(t, s.SaveEquipmentItems(ctx, nil, concurrent))

	// act
	err = s.InTransaction(ctx, func(ctx context.Context, tx store.Handle) error {
		return s.SaveEquipmentItems(ctx, tx, first, second)
	})

	// assert
	assert.ErrorIs(t, err, store.ErrConcurrencyConflict)

	bound, err := s.FindEquipmentItemsByReservation(ctx, nil, order.ID(), uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, bound)
}

func Test_FindEquipmentItemsByType_OldestFirstFilteredByStatus(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()
	ctx := context.Background()
	typeID := uuid.New()
	units := givenUnits(t, s, typeID, 3)
	givenUnits(t, s, uuid.New(), 1)

	inMaintenance, err := units[2].MarkInMaintenance("inspection", fixtureStart.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.SaveEquipmentItems(ctx, nil, inMaintenance))

	// act
	all, err := s.FindEquipmentItemsByType(ctx, nil, typeID, nil)
	require.NoError(t, err)
	available, err := s.FindEquipmentItemsByType(ctx, nil, typeID, []inventory.ItemStatus{inventory.StatusAvailable})
	require.NoError(t, err)
	unknown, err := s.FindEquipmentItemsByType(ctx, nil, uuid.New(), nil)
	require.NoError(t, err)

	// assert
	require.Len(t, all, 3)
	for i, item := range all {
		assert.Equal(t, units[i].ID(), item.ID())
	}
	assert.Equal(t, inventory.StatusMaintenance, all[2].Status())

	require.Len(t, available, 2)
	assert.Equal(t, units[0].ID(), available[0].ID())
	assert.Equal(t, units[1].ID(), available[1].ID())

	assert.Empty(t, unknown)
}

func Test_FindAllocationCandidates_PlannedFirstThenOldest(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()
	ctx := context.Background()
	customerID := givenCustomer(t, s)
	typeID := uuid.New()
	units := givenUnits(t, s, typeID, 4)
	window := booking.MustTimeRange(day(1), day(3))

	order := givenOrder(t, s, buildOrder(t, customerID, fixtureStart, orderLine{
		equipmentTypeID: typeID, quantity: 1, window: window, units: []uuid.UUID{units[3].ID()},
	}))

	// act
	candidates, err := s.FindAllocationCandidates(ctx, nil, allocation.CandidateQuery{
		ReservationID:   order.ID(),
		EquipmentTypeID: typeID,
		Window:          window,
		Limit:           3,
	})

	// assert
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{units[3].ID(), units[0].ID(), units[1].ID()}, unitIDs(candidates))
}

func Test_FindAllocationCandidates_SkipsUnitsHeldByOtherReservations(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()
	ctx := context.Background()
	customerID := givenCustomer(t, s)
	typeID := uuid.New()
	units := givenUnits(t, s, typeID, 4)

	givenOrder(t, s, buildOrder(t, customerID, fixtureStart, orderLine{
		equipmentTypeID: typeID, quantity: 1, window: booking.MustTimeRange(day(1), day(3)), units: []uuid.UUID{units[0].ID()},
	}))
	givenOrderInStatus(t, s, buildOrder(t, customerID, fixtureStart, orderLine{
		equipmentTypeID: typeID, quantity: 1, window: booking.MustTimeRange(day(2), day(4)), units: []uuid.UUID{units[1].ID()},
	}), booking.StatusCancelled)
	givenOrder(t, s, buildOrder(t, customerID, fixtureStart, orderLine{
		equipmentTypeID: typeID, quantity: 1, window: booking.MustTimeRange(day(4), day(6)), units: []uuid.UUID{units[2].ID()},
	}))

	broken, err := units[3].MarkInMaintenance("cracked screen", fixtureStart)
	require.NoError(t, err)
	require.NoError(t, s.SaveEquipmentItems(ctx, nil, broken))

	query := allocation.CandidateQuery{
		ReservationID:   uuid.New(),
		EquipmentTypeID: typeID,
		Window:          booking.MustTimeRange(day(3), day(4)),
	}

	// act
	candidates, errPlain := s.FindAllocationCandidates(ctx, nil, query)

	query.Turnaround = 12 * time.Hour
	withTurnaround, errTurnaround := s.FindAllocationCandidates(ctx, nil, query)

	// assert
	require.NoError(t, errPlain)
	require.NoError(t, errTurnaround)
	assert.Equal(t, []uuid.UUID{units[0].ID(), units[1].ID(), units[2].ID()}, unitIDs(candidates),
		"day 1-3 ends at the window start, the day 2-4 order is cancelled and day 4-6 starts at the window end")
	assert.Equal(t, []uuid.UUID{units[1].ID()}, unitIDs(withTurnaround),
		"the turnaround keeps the first unit busy after day 3 and the third unit reserved before day 4")
}

func Test_CountRentableUnitsAndSchedules(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()
	ctx := context.Background()
	customerID := givenCustomer(t, s)
	typeID := uuid.New()
	units := givenUnits(t, s, typeID, 3)
	givenUnits(t, s, uuid.New(), 2)

	retired, err := units[2].Retire("end of life", fixtureStart)
	require.NoError(t, err)
	require.NoError(t, s.SaveEquipmentItems(ctx, nil, retired))

	givenOrder(t, s, buildOrder(t, customerID, fixtureStart, orderLine{
		equipmentTypeID: typeID, quantity: 1, window: booking.MustTimeRange(day(1), day(3)), units: []uuid.UUID{units[1].ID()},
	}))

	// act
	count, errCount := s.CountRentableUnits(ctx, nil, typeID)
	schedules, errSchedules := s.FindUnitSchedules(ctx, nil, typeID, booking.MustTimeRange(day(2), day(5)))

	// assert
	require.NoError(t, errCount)
	require.NoError(t, errSchedules)
	assert.Equal(t, 2, count)

	require.Len(t, schedules, 2)
	assert.Equal(t, units[0].ID(), schedules[0].UnitID)
	assert.Empty(t, schedules[0].Allocations)
	assert.Equal(t, units[1].ID(), schedules[1].UnitID)
	require.Len(t, schedules[1].Allocations, 1)
	assert.True(t, schedules[1].Allocations[0].Equal(booking.MustTimeRange(day(1), day(3))))
}

func Test_FindBlockingBookings_OnlyBlockingOverlappingItems(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()
	customerID := givenCustomer(t, s)
	typeID := uuid.New()

	givenOrder(t, s, buildOrder(t, customerID, fixtureStart, orderLine{
		equipmentTypeID: typeID, quantity: 2, window: booking.MustTimeRange(day(1), day(3)),
	}))
	givenOrderInStatus(t, s, buildOrder(t, customerID, fixtureStart, orderLine{
		equipmentTypeID: typeID, quantity: 1, window: booking.MustTimeRange(day(2), day(4)),
	}), booking.StatusInProgress)
	givenOrderInStatus(t, s, buildOrder(t, customerID, fixtureStart, orderLine{
		equipmentTypeID: typeID, quantity: 5, window: booking.MustTimeRange(day(2), day(4)),
	}), booking.StatusCancelled)
	givenOrder(t, s, buildOrder(t, customerID, fixtureStart, orderLine{
		equipmentTypeID: uuid.New(), quantity: 7, window: booking.MustTimeRange(day(2), day(4)),
	}))

	// act
	bookings, err := s.FindBlockingBookings(context.Background(), nil, typeID, booking.MustTimeRange(day(2), day(5)))

	// assert
	require.NoError(t, err)

	quantities := make([]int, 0, len(bookings))
	for _, b := range bookings {
		quantities = append(quantities, b.Quantity)
	}

	assert.ElementsMatch(t, []int{2, 1}, quantities)
}

func Test_LockEquipmentType_InsideTransaction(t *testing.T) {
	// arrange
	s := pgtest.Open(t).Store()
	typeID := uuid.New()

	// act
	err := s.InTransaction(context.Background(), func(ctx context.Context, tx store.Handle) error {
		if lockErr := s.LockEquipmentType(ctx, tx, typeID); lockErr != nil {
			return lockErr
		}

		_, countErr := s.CountRentableUnits(ctx, tx, typeID)

		return countErr
	})

	// assert
	assert.NoError(t, err)
}

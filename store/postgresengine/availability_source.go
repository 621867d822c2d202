package postgresengine

import (
	"context"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/availability"
	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/store"
)

const (
	actionFindBlockingBookings = "find_blocking_bookings"
	actionFindUnitSchedules    = "find_unit_schedules"
	actionCountRentableUnits   = "count_rentable_units"
	actionLockEquipmentType    = "lock_equipment_type"
)

// FindBlockingBookings returns the items of blocking orders for the type whose window overlaps window.
func (s Store) FindBlockingBookings(
	ctx context.Context,
	h store.Handle,
	equipmentTypeID uuid.UUID,
	window booking.TimeRange,
) (bookings []availability.Booking, err error) {
	observer, ctx := s.observe(ctx, actionFindBlockingBookings)
	defer func() { observer.finish(err) }()

	stmt := dialect.From(goqu.T(tableOrderItems).As("i")).Prepared(true).
		Select(goqu.I("i.start_time"), goqu.I("i.end_time"), goqu.I("i.quantity")).
		Join(goqu.T(tableOrders).As("o"), goqu.On(goqu.I("o.id").Eq(goqu.I("i.reservation_id")))).
		Where(
			goqu.I("i.equipment_type_id").Eq(equipmentTypeID.String()),
			goqu.I("o.status").In(statusStrings(booking.BlockingStatuses)),
			overlaps(goqu.I("i.start_time"), goqu.I("i.end_time"), window),
		)

	rows, err := s.query(ctx, h, actionFindBlockingBookings, stmt)
	if err != nil {
		return nil, err
	}
	defer s.closeRows(ctx, rows)

	bookings = make([]availability.Booking, 0)

	for rows.Next() {
		var (
			start, end time.Time
			quantity   int
		)

		if err = rows.Scan(&start, &end, &quantity); err != nil {
			return nil, s.scanError(ctx, err)
		}

		itemWindow, rangeErr := booking.NewTimeRange(start, end)
		if rangeErr != nil {
			return nil, errors.Join(store.ErrDecodingFailed, rangeErr)
		}

		bookings = append(bookings, availability.Booking{Window: itemWindow, Quantity: quantity})
	}

	if err = s.rowsError(rows); err != nil {
		return nil, err
	}

	observer.addRows(len(bookings))

	return bookings, nil
}

// FindUnitSchedules returns every rentable unit of the type, oldest first, together with the
// allocations it holds in blocking orders overlapping window.
func (s Store) FindUnitSchedules(
	ctx context.Context,
	h store.Handle,
	equipmentTypeID uuid.UUID,
	window booking.TimeRange,
) (schedules []availability.UnitSchedule, err error) {
	observer, ctx := s.observe(ctx, actionFindUnitSchedules)
	defer func() { observer.finish(err) }()

	unitIDs, err := s.findRentableUnitIDs(ctx, h, equipmentTypeID)
	if err != nil {
		return nil, err
	}

	if len(unitIDs) == 0 {
		return nil, nil
	}

	allocationsByUnit, err := s.findUnitAllocations(ctx, h, equipmentTypeID, window)
	if err != nil {
		return nil, err
	}

	schedules = make([]availability.UnitSchedule, 0, len(unitIDs))
	for _, unitID := range unitIDs {
		schedules = append(schedules, availability.UnitSchedule{
			UnitID:      unitID,
			Allocations: allocationsByUnit[unitID],
		})
	}

	observer.addRows(len(schedules))

	return schedules, nil
}

// CountRentableUnits returns how many units of the type are Available, Allocated or InUse.
// It is the total inventory the availability engine works against.
func (s Store) CountRentableUnits(ctx context.Context, h store.Handle, equipmentTypeID uuid.UUID) (count int, err error) {
	observer, ctx := s.observe(ctx, actionCountRentableUnits)
	defer func() { observer.finish(err) }()

	stmt := dialect.From(tableEquipmentItems).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(
			goqu.C("equipment_type_id").Eq(equipmentTypeID.String()),
			goqu.C("status").In(itemStatusStrings(inventory.RentableStatuses)),
		)

	rows, err := s.query(ctx, h, actionCountRentableUnits, stmt)
	if err != nil {
		return 0, err
	}
	defer s.closeRows(ctx, rows)

	if rows.Next() {
		if err = rows.Scan(&count); err != nil {
			return 0, s.scanError(ctx, err)
		}
	}

	if err = s.rowsError(rows); err != nil {
		return 0, err
	}

	return count, nil
}

// LockEquipmentType takes a transaction-scoped advisory lock keyed by the equipment type.
// Admissions for the same type serialize on it; h must be a transaction.
func (s Store) LockEquipmentType(ctx context.Context, h store.Handle, equipmentTypeID uuid.UUID) (err error) {
	observer, ctx := s.observe(ctx, actionLockEquipmentType)
	defer func() { observer.finish(err) }()

	stmt := dialect.Select(
		goqu.Func("pg_advisory_xact_lock", goqu.Func("hashtext", equipmentTypeID.String())),
	).Prepared(true)

	_, err = s.exec(ctx, h, actionLockEquipmentType, stmt)

	return err
}

func (s Store) findRentableUnitIDs(ctx context.Context, h store.Handle, equipmentTypeID uuid.UUID) ([]uuid.UUID, error) {
	stmt := dialect.From(tableEquipmentItems).Prepared(true).
		Select("id").
		Where(
			goqu.C("equipment_type_id").Eq(equipmentTypeID.String()),
			goqu.C("status").In(itemStatusStrings(inventory.RentableStatuses)),
		).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())

	rows, err := s.query(ctx, h, actionFindUnitSchedules, stmt)
	if err != nil {
		return nil, err
	}
	defer s.closeRows(ctx, rows)

	unitIDs := make([]uuid.UUID, 0)

	for rows.Next() {
		var id uuid.UUID
		if err = rows.Scan(&id); err != nil {
			return nil, s.scanError(ctx, err)
		}

		unitIDs = append(unitIDs, id)
	}

	if err = s.rowsError(rows); err != nil {
		return nil, err
	}

	return unitIDs, nil
}

func (s Store) findUnitAllocations(
	ctx context.Context,
	h store.Handle,
	equipmentTypeID uuid.UUID,
	window booking.TimeRange,
) (map[uuid.UUID][]booking.TimeRange, error) {
	stmt := dialect.From(goqu.T(tableAllocations).As("a")).Prepared(true).
		Select(goqu.I("a.equipment_unit_id"), goqu.I("a.start_time"), goqu.I("a.end_time")).
		Join(goqu.T(tableOrderItems).As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("a.item_id")))).
		Join(goqu.T(tableOrders).As("o"), goqu.On(goqu.I("o.id").Eq(goqu.I("i.reservation_id")))).
		Where(
			goqu.I("i.equipment_type_id").Eq(equipmentTypeID.String()),
			goqu.I("o.status").In(statusStrings(booking.BlockingStatuses)),
			overlaps(goqu.I("a.start_time"), goqu.I("a.end_time"), window),
		).
		Order(goqu.I("a.equipment_unit_id").Asc(), goqu.I("a.start_time").Asc())

	rows, err := s.query(ctx, h, actionFindUnitSchedules, stmt)
	if err != nil {
		return nil, err
	}
	defer s.closeRows(ctx, rows)

	allocations := make(map[uuid.UUID][]booking.TimeRange)

	for rows.Next() {
		var (
			unitID     uuid.UUID
			start, end time.Time
		)

		if err = rows.Scan(&unitID, &start, &end); err != nil {
			return nil, s.scanError(ctx, err)
		}

		allocationWindow, rangeErr := booking.NewTimeRange(start, end)
		if rangeErr != nil {
			return nil, errors.Join(store.ErrDecodingFailed, rangeErr)
		}

		allocations[unitID] = append(allocations[unitID], allocationWindow)
	}

	if err = s.rowsError(rows); err != nil {
		return nil, err
	}

	return allocations, nil
}

func itemStatusStrings(statuses []inventory.ItemStatus) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}

	return out
}

package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/allocation"
	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/store"
)

const (
	actionInsertEquipmentItem       = "insert_equipment_item"
	actionFindEquipmentItem         = "find_equipment_item"
	actionSaveEquipmentItems        = "save_equipment_items"
	actionFindItemsByReservation    = "find_equipment_items_by_reservation"
	actionFindItemsByType           = "find_equipment_items_by_type"
	actionFindAllocationCandidates  = "find_allocation_candidates"
	actionFindEquipmentStatusChange = "find_equipment_status_history"
	actionInsertStatusHistory       = "insert_equipment_status_history"

	logMsgEquipmentSaved = "equipment items saved"
	logAttrItemIDs       = "item_ids"
)

var equipmentColumns = []any{
	goqu.I("e.id"),
	goqu.I("e.equipment_type_id"),
	goqu.I("e.serial_number"),
	goqu.I("e.status"),
	goqu.I("e.allocated_reservation_id"),
	goqu.I("e.version"),
	goqu.I("e.created_at"),
}

// InsertEquipmentItem registers a new unit and its pending status history.
// A taken serial number fails with store.ErrDuplicateKey.
func (s Store) InsertEquipmentItem(ctx context.Context, h store.Handle, item inventory.EquipmentItem) (err error) {
	observer, ctx := s.observe(ctx, actionInsertEquipmentItem)
	defer func() { observer.finish(err) }()

	stmt := dialect.Insert(tableEquipmentItems).Prepared(true).Rows(goqu.Record{
		"id":                       item.ID().String(),
		"equipment_type_id":        item.EquipmentTypeID().String(),
		"serial_number":            item.SerialNumber(),
		"status":                   string(item.Status()),
		"allocated_reservation_id": nullableUUID(item.AllocatedReservationID()),
		"version":                  item.Version(),
		"created_at":               item.CreatedAt(),
	})

	affected, err := s.exec(ctx, h, actionInsertEquipmentItem, stmt)
	if err != nil {
		return err
	}

	observer.addRows(int(affected))

	return s.insertStatusHistory(ctx, h, item)
}

// FindEquipmentItem loads one unit.
func (s Store) FindEquipmentItem(ctx context.Context, h store.Handle, itemID uuid.UUID) (item inventory.EquipmentItem, err error) {
	observer, ctx := s.observe(ctx, actionFindEquipmentItem)
	defer func() { observer.finish(err) }()

	stmt := dialect.From(goqu.T(tableEquipmentItems).As("e")).Prepared(true).
		Select(equipmentColumns...).
		Where(goqu.I("e.id").Eq(itemID.String()))

	items, err := s.findEquipmentItems(ctx, h, actionFindEquipmentItem, stmt)
	if err != nil {
		return inventory.EquipmentItem{}, err
	}

	if len(items) == 0 {
		return inventory.EquipmentItem{}, errors.Join(
			inventory.ErrEquipmentItemNotFound,
			store.ErrNotFound,
			fmt.Errorf("equipment item %s", itemID),
		)
	}

	observer.addRows(1)

	return items[0], nil
}

// SaveEquipmentItems writes status and binding of every item, conditioned on the version it was read at,
// and bumps the version. Pending status changes are appended to the history in the same statement batch.
// Any moved version fails the whole call with store.ErrConcurrencyConflict.
func (s Store) SaveEquipmentItems(ctx context.Context, h store.Handle, items ...inventory.EquipmentItem) (err error) {
	observer, ctx := s.observe(ctx, actionSaveEquipmentItems)
	defer func() { observer.finish(err) }()

	ids := make([]string, 0, len(items))

	for _, item := range items {
		stmt := dialect.Update(tableEquipmentItems).Prepared(true).
			Set(goqu.Record{
				"status":                   string(item.Status()),
				"allocated_reservation_id": nullableUUID(item.AllocatedReservationID()),
				"version":                  goqu.L("version + 1"),
			}).
			Where(
				goqu.C("id").Eq(item.ID().String()),
				goqu.C("version").Eq(item.Version()),
			)

		affected, execErr := s.exec(ctx, h, actionSaveEquipmentItems, stmt)
		if execErr != nil {
			return execErr
		}

		if err = s.expectRows(ctx, actionSaveEquipmentItems, item.ID(), affected, 1); err != nil {
			return err
		}

		if err = s.insertStatusHistory(ctx, h, item); err != nil {
			return err
		}

		observer.addRows(int(affected))
		ids = append(ids, item.ID().String())
	}

	s.logOperation(ctx, logMsgEquipmentSaved, logAttrItemIDs, ids)

	return nil
}

// FindEquipmentItemsByReservation returns the units bound to the reservation, oldest first.
// A nil equipmentTypeID matches every type.
func (s Store) FindEquipmentItemsByReservation(
	ctx context.Context,
	h store.Handle,
	reservationID uuid.UUID,
	equipmentTypeID uuid.UUID,
) (items []inventory.EquipmentItem, err error) {
	observer, ctx := s.observe(ctx, actionFindItemsByReservation)
	defer func() { observer.finish(err) }()

	where := []goqu.Expression{goqu.I("e.allocated_reservation_id").Eq(reservationID.String())}
	if equipmentTypeID != uuid.Nil {
		where = append(where, goqu.I("e.equipment_type_id").Eq(equipmentTypeID.String()))
	}

	stmt := dialect.From(goqu.T(tableEquipmentItems).As("e")).Prepared(true).
		Select(equipmentColumns...).
		Where(where...).
		Order(goqu.I("e.created_at").Asc(), goqu.I("e.id").Asc())

	if items, err = s.findEquipmentItems(ctx, h, actionFindItemsByReservation, stmt); err != nil {
		return nil, err
	}

	observer.addRows(len(items))

	return items, nil
}

// FindEquipmentItemsByType returns the units of the type, oldest first.
// An empty statuses slice matches every status.
func (s Store) FindEquipmentItemsByType(
	ctx context.Context,
	h store.Handle,
	equipmentTypeID uuid.UUID,
	statuses []inventory.ItemStatus,
) (items []inventory.EquipmentItem, err error) {
	observer, ctx := s.observe(ctx, actionFindItemsByType)
	defer func() { observer.finish(err) }()

	where := []goqu.Expression{goqu.I("e.equipment_type_id").Eq(equipmentTypeID.String())}
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, status := range statuses {
			values[i] = string(status)
		}

		where = append(where, goqu.I("e.status").In(values))
	}

	stmt := dialect.From(goqu.T(tableEquipmentItems).As("e")).Prepared(true).
		Select(equipmentColumns...).
		Where(where...).
		Order(goqu.I("e.created_at").Asc(), goqu.I("e.id").Asc())

	if items, err = s.findEquipmentItems(ctx, h, actionFindItemsByType, stmt); err != nil {
		return nil, err
	}

	observer.addRows(len(items))

	return items, nil
}

// FindAllocationCandidates returns Available units of the type that hold no allocation overlapping the
// window, widened by the turnaround at both ends, in any other blocking reservation. Units the reservation
// already planned come first, then the rest oldest first.
func (s Store) FindAllocationCandidates(
	ctx context.Context,
	h store.Handle,
	query allocation.CandidateQuery,
) (items []inventory.EquipmentItem, err error) {
	observer, ctx := s.observe(ctx, actionFindAllocationCandidates)
	defer func() { observer.finish(err) }()

	reservationID := query.ReservationID.String()
	window := query.Window.ExtendStart(query.Turnaround).ExtendEnd(query.Turnaround)

	conflicting := dialect.From(goqu.T(tableAllocations).As("a")).
		Select(goqu.L("1")).
		Join(goqu.T(tableOrderItems).As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("a.item_id")))).
		Join(goqu.T(tableOrders).As("o"), goqu.On(goqu.I("o.id").Eq(goqu.I("i.reservation_id")))).
		Where(
			goqu.I("a.equipment_unit_id").Eq(goqu.I("e.id")),
			goqu.I("o.id").Neq(reservationID),
			goqu.I("o.status").In(statusStrings(booking.BlockingStatuses)),
			overlaps(goqu.I("a.start_time"), goqu.I("a.end_time"), window),
		)

	planned := dialect.From(goqu.T(tableAllocations).As("pa")).
		Select(goqu.L("1")).
		Join(goqu.T(tableOrderItems).As("pi"), goqu.On(goqu.I("pi.id").Eq(goqu.I("pa.item_id")))).
		Where(
			goqu.I("pa.equipment_unit_id").Eq(goqu.I("e.id")),
			goqu.I("pi.reservation_id").Eq(reservationID),
		)

	stmt := dialect.From(goqu.T(tableEquipmentItems).As("e")).Prepared(true).
		Select(equipmentColumns...).
		Where(
			goqu.I("e.equipment_type_id").Eq(query.EquipmentTypeID.String()),
			goqu.I("e.status").Eq(string(inventory.StatusAvailable)),
			goqu.L("NOT EXISTS ?", conflicting),
		).
		Order(
			goqu.L("EXISTS ?", planned).Desc(),
			goqu.I("e.created_at").Asc(),
			goqu.I("e.id").Asc(),
		)

	if query.Limit > 0 {
		stmt = stmt.Limit(uint(query.Limit))
	}

	if items, err = s.findEquipmentItems(ctx, h, actionFindAllocationCandidates, stmt); err != nil {
		return nil, err
	}

	observer.addRows(len(items))

	return items, nil
}

// FindEquipmentStatusHistory returns the recorded status changes of a unit, oldest first.
func (s Store) FindEquipmentStatusHistory(
	ctx context.Context,
	h store.Handle,
	itemID uuid.UUID,
) (changes []inventory.StatusChange, err error) {
	observer, ctx := s.observe(ctx, actionFindEquipmentStatusChange)
	defer func() { observer.finish(err) }()

	stmt := dialect.From(tableStatusHistory).Prepared(true).
		Select("id", "from_status", "to_status", "reason", "changed_at").
		Where(goqu.C("equipment_item_id").Eq(itemID.String())).
		Order(goqu.C("changed_at").Asc(), goqu.C("id").Asc())

	rows, err := s.query(ctx, h, actionFindEquipmentStatusChange, stmt)
	if err != nil {
		return nil, err
	}
	defer s.closeRows(ctx, rows)

	changes = make([]inventory.StatusChange, 0)

	for rows.Next() {
		var (
			change   inventory.StatusChange
			from, to string
		)

		if err = rows.Scan(&change.ID, &from, &to, &change.Reason, &change.ChangedAt); err != nil {
			return nil, s.scanError(ctx, err)
		}

		change.From = inventory.ItemStatus(from)
		change.To = inventory.ItemStatus(to)
		changes = append(changes, change)
	}

	if err = s.rowsError(rows); err != nil {
		return nil, err
	}

	observer.addRows(len(changes))

	return changes, nil
}

func (s Store) insertStatusHistory(ctx context.Context, h store.Handle, item inventory.EquipmentItem) error {
	pending := item.PendingStatusChanges()
	if len(pending) == 0 {
		return nil
	}

	rows := make([]any, 0, len(pending))
	for _, change := range pending {
		rows = append(rows, goqu.Record{
			"id":                change.ID.String(),
			"equipment_item_id": item.ID().String(),
			"from_status":       string(change.From),
			"to_status":         string(change.To),
			"reason":            change.Reason,
			"changed_at":        change.ChangedAt,
		})
	}

	// Entries are immutable; writing the same change twice is a no-op.
	_, err := s.exec(ctx, h, actionInsertStatusHistory,
		dialect.Insert(tableStatusHistory).Prepared(true).Rows(rows...).OnConflict(goqu.DoNothing()))

	return err
}

func (s Store) findEquipmentItems(ctx context.Context, h store.Handle, action string, stmt statement) ([]inventory.EquipmentItem, error) {
	rows, err := s.query(ctx, h, action, stmt)
	if err != nil {
		return nil, err
	}
	defer s.closeRows(ctx, rows)

	items := make([]inventory.EquipmentItem, 0)

	for rows.Next() {
		var (
			id, typeID    uuid.UUID
			serial        string
			rawStatus     string
			reservationID uuid.NullUUID
			version       int64
			createdAt     time.Time
		)

		if err = rows.Scan(&id, &typeID, &serial, &rawStatus, &reservationID, &version, &createdAt); err != nil {
			return nil, s.scanError(ctx, err)
		}

		status, parseErr := inventory.ParseItemStatus(rawStatus)
		if parseErr != nil {
			return nil, errors.Join(store.ErrDecodingFailed, parseErr)
		}

		items = append(items, inventory.ReconstituteEquipmentItem(
			id, typeID, serial, status, reservationID.UUID, version, createdAt,
		))
	}

	if err = s.rowsError(rows); err != nil {
		return nil, err
	}

	return items, nil
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}

	return id.String()
}

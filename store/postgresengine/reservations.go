package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/store"
)

const (
	actionInsertReservation        = "insert_reservation_order"
	actionFindReservation          = "find_reservation_order"
	actionFindReservationStatus    = "find_reservation_status"
	actionUpdateReservationStatus  = "update_reservation_status"
	actionFindCustomerReservations = "find_customer_reservations"
	actionFindReservationsInRange  = "find_reservations_in_range"
	actionReplaceItemAllocations   = "replace_item_allocations"
	actionLoadOrderItems           = "load_order_items"
	actionLoadAllocations          = "load_allocations"

	logMsgReservationInserted = "reservation order inserted"
	logAttrItemCount          = "item_count"
	logAttrStatus             = "status"
	logAttrPriorStatus        = "prior_status"
)

type orderRow struct {
	id          uuid.UUID
	customerID  uuid.UUID
	status      string
	amountCents int64
	currency    string
	createdAt   time.Time
}

var orderColumns = []any{"id", "customer_id", "status", "total_amount_cents", "currency", "created_at"}

// InsertReservationOrder inserts the order with its items and their allocations.
// An existing order id fails with store.ErrDuplicateKey.
func (s Store) InsertReservationOrder(ctx context.Context, h store.Handle, order booking.ReservationOrder) (err error) {
	observer, ctx := s.observe(ctx, actionInsertReservation)
	defer func() { observer.finish(err) }()

	orderStmt := dialect.Insert(tableOrders).Prepared(true).Rows(goqu.Record{
		"id":                 order.ID().String(),
		"customer_id":        order.CustomerID().String(),
		"status":             string(order.Status()),
		"total_amount_cents": order.Total().AmountCents,
		"currency":           order.Total().Currency,
		"created_at":         order.CreatedAt(),
	})

	affected, err := s.exec(ctx, h, actionInsertReservation, orderStmt)
	if err != nil {
		return err
	}

	observer.addRows(int(affected))

	items := order.Items()
	if len(items) == 0 {
		return nil
	}

	itemRows := make([]any, 0, len(items))
	allocationRows := make([]any, 0)

	for _, item := range items {
		quote, encodeErr := shell.EncodePayload(item.Quote())
		if encodeErr != nil {
			return encodeErr
		}

		itemRows = append(itemRows, goqu.Record{
			"id":                item.ID().String(),
			"reservation_id":    order.ID().String(),
			"equipment_type_id": item.EquipmentTypeID().String(),
			"quantity":          item.RequestedQuantity(),
			"start_time":        item.Window().Start(),
			"end_time":          item.Window().End(),
			"quote":             jsonb(quote),
		})

		for _, allocation := range item.Allocations() {
			allocationRows = append(allocationRows, allocationRecord(item.ID(), allocation))
		}
	}

	if affected, err = s.exec(ctx, h, actionInsertReservation, dialect.Insert(tableOrderItems).Prepared(true).Rows(itemRows...)); err != nil {
		return err
	}

	observer.addRows(int(affected))

	if len(allocationRows) > 0 {
		if affected, err = s.exec(ctx, h, actionInsertReservation, dialect.Insert(tableAllocations).Prepared(true).Rows(allocationRows...)); err != nil {
			return err
		}

		observer.addRows(int(affected))
	}

	s.logOperation(ctx, logMsgReservationInserted,
		logAttrID, order.ID().String(),
		logAttrItemCount, len(items),
	)

	return nil
}

// FindReservationOrder loads one order with its items and allocations.
func (s Store) FindReservationOrder(ctx context.Context, h store.Handle, reservationID uuid.UUID) (order booking.ReservationOrder, err error) {
	observer, ctx := s.observe(ctx, actionFindReservation)
	defer func() { observer.finish(err) }()

	stmt := dialect.From(tableOrders).Prepared(true).
		Select(orderColumns...).
		Where(goqu.C("id").Eq(reservationID.String()))

	orders, err := s.findOrders(ctx, h, actionFindReservation, stmt)
	if err != nil {
		return booking.ReservationOrder{}, err
	}

	if len(orders) == 0 {
		return booking.ReservationOrder{}, reservationNotFound(reservationID)
	}

	observer.addRows(1)

	return orders[0], nil
}

// FindReservationStatus reads only the status column of an order.
func (s Store) FindReservationStatus(
	ctx context.Context,
	h store.Handle,
	reservationID uuid.UUID,
) (status booking.ReservationStatus, err error) {
	observer, ctx := s.observe(ctx, actionFindReservationStatus)
	defer func() { observer.finish(err) }()

	stmt := dialect.From(tableOrders).Prepared(true).
		Select("status").
		Where(goqu.C("id").Eq(reservationID.String()))

	rows, err := s.query(ctx, h, actionFindReservationStatus, stmt)
	if err != nil {
		return "", err
	}
	defer s.closeRows(ctx, rows)

	if !rows.Next() {
		if err = s.rowsError(rows); err != nil {
			return "", err
		}

		return "", reservationNotFound(reservationID)
	}

	var raw string
	if err = rows.Scan(&raw); err != nil {
		return "", s.scanError(ctx, err)
	}

	observer.addRows(1)

	return booking.ParseReservationStatus(raw)
}

// UpdateReservationStatus writes the order's status when the stored status is still prior.
// A status that moved in between fails with store.ErrConcurrencyConflict.
func (s Store) UpdateReservationStatus(
	ctx context.Context,
	h store.Handle,
	order booking.ReservationOrder,
	prior booking.ReservationStatus,
) (err error) {
	observer, ctx := s.observe(ctx, actionUpdateReservationStatus)
	defer func() { observer.finish(err) }()

	stmt := dialect.Update(tableOrders).Prepared(true).
		Set(goqu.Record{"status": string(order.Status())}).
		Where(
			goqu.C("id").Eq(order.ID().String()),
			goqu.C("status").Eq(string(prior)),
		)

	affected, err := s.exec(ctx, h, actionUpdateReservationStatus, stmt)
	if err != nil {
		return err
	}

	if err = s.expectRows(ctx, actionUpdateReservationStatus, order.ID(), affected, 1); err != nil {
		return err
	}

	observer.addRows(int(affected))
	s.logOperation(ctx, actionUpdateReservationStatus,
		logAttrID, order.ID().String(),
		logAttrPriorStatus, string(prior),
		logAttrStatus, string(order.Status()),
	)

	return nil
}

// FindCustomerReservations returns a customer's orders, newest first.
// An empty statuses slice matches every status.
func (s Store) FindCustomerReservations(
	ctx context.Context,
	h store.Handle,
	customerID uuid.UUID,
	statuses []booking.ReservationStatus,
	limit, offset int,
) (orders []booking.ReservationOrder, err error) {
	observer, ctx := s.observe(ctx, actionFindCustomerReservations)
	defer func() { observer.finish(err) }()

	where := []goqu.Expression{goqu.C("customer_id").Eq(customerID.String())}
	if len(statuses) > 0 {
		where = append(where, goqu.C("status").In(statusStrings(statuses)))
	}

	stmt := dialect.From(tableOrders).Prepared(true).
		Select(orderColumns...).
		Where(where...).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Asc()).
		Limit(uint(limit)).
		Offset(uint(offset))

	if orders, err = s.findOrders(ctx, h, actionFindCustomerReservations, stmt); err != nil {
		return nil, err
	}

	observer.addRows(len(orders))

	return orders, nil
}

// FindReservationsInRange returns orders in one of the statuses with at least one item overlapping window,
// oldest first.
func (s Store) FindReservationsInRange(
	ctx context.Context,
	h store.Handle,
	window booking.TimeRange,
	statuses []booking.ReservationStatus,
) (orders []booking.ReservationOrder, err error) {
	observer, ctx := s.observe(ctx, actionFindReservationsInRange)
	defer func() { observer.finish(err) }()

	overlapping := dialect.From(tableOrderItems).
		Select("reservation_id").
		Where(overlaps(goqu.C("start_time"), goqu.C("end_time"), window))

	where := []goqu.Expression{goqu.C("id").In(overlapping)}
	if len(statuses) > 0 {
		where = append(where, goqu.C("status").In(statusStrings(statuses)))
	}

	stmt := dialect.From(tableOrders).Prepared(true).
		Select(orderColumns...).
		Where(where...).
		Order(goqu.C("created_at").Asc(), goqu.C("id").Asc())

	if orders, err = s.findOrders(ctx, h, actionFindReservationsInRange, stmt); err != nil {
		return nil, err
	}

	observer.addRows(len(orders))

	return orders, nil
}

// ReplaceItemAllocations makes the allocations stored for a line item match allocations exactly.
func (s Store) ReplaceItemAllocations(
	ctx context.Context,
	h store.Handle,
	itemID uuid.UUID,
	allocations []booking.Allocation,
) (err error) {
	observer, ctx := s.observe(ctx, actionReplaceItemAllocations)
	defer func() { observer.finish(err) }()

	deleteStmt := dialect.Delete(tableAllocations).Prepared(true).
		Where(goqu.C("item_id").Eq(itemID.String()))

	if _, err = s.exec(ctx, h, actionReplaceItemAllocations, deleteStmt); err != nil {
		return err
	}

	if len(allocations) == 0 {
		return nil
	}

	rows := make([]any, 0, len(allocations))
	for _, allocation := range allocations {
		rows = append(rows, allocationRecord(itemID, allocation))
	}

	affected, err := s.exec(ctx, h, actionReplaceItemAllocations, dialect.Insert(tableAllocations).Prepared(true).Rows(rows...))
	if err != nil {
		return err
	}

	observer.addRows(int(affected))

	return nil
}

// findOrders runs an order select and attaches items and allocations in two further queries.
func (s Store) findOrders(ctx context.Context, h store.Handle, action string, stmt statement) ([]booking.ReservationOrder, error) {
	rows, err := s.query(ctx, h, action, stmt)
	if err != nil {
		return nil, err
	}

	headers := make([]orderRow, 0)

	for rows.Next() {
		var row orderRow
		if scanErr := rows.Scan(&row.id, &row.customerID, &row.status, &row.amountCents, &row.currency, &row.createdAt); scanErr != nil {
			s.closeRows(ctx, rows)
			return nil, s.scanError(ctx, scanErr)
		}

		headers = append(headers, row)
	}

	rowsErr := s.rowsError(rows)
	s.closeRows(ctx, rows)

	if rowsErr != nil {
		return nil, rowsErr
	}

	if len(headers) == 0 {
		return nil, nil
	}

	orderIDs := make([]string, len(headers))
	for i, header := range headers {
		orderIDs[i] = header.id.String()
	}

	items, err := s.loadOrderItems(ctx, h, orderIDs)
	if err != nil {
		return nil, err
	}

	orders := make([]booking.ReservationOrder, 0, len(headers))

	for _, header := range headers {
		status, parseErr := booking.ParseReservationStatus(header.status)
		if parseErr != nil {
			return nil, errors.Join(store.ErrDecodingFailed, parseErr)
		}

		orders = append(orders, booking.ReconstituteReservationOrder(
			header.id,
			header.customerID,
			items[header.id],
			status,
			header.createdAt,
			booking.Money{AmountCents: header.amountCents, Currency: header.currency},
		))
	}

	return orders, nil
}

type itemRow struct {
	id              uuid.UUID
	reservationID   uuid.UUID
	equipmentTypeID uuid.UUID
	quantity        int
	start           time.Time
	end             time.Time
	quote           []byte
}

func (s Store) loadOrderItems(
	ctx context.Context,
	h store.Handle,
	orderIDs []string,
) (map[uuid.UUID][]booking.ReservationOrderItem, error) {
	stmt := dialect.From(tableOrderItems).Prepared(true).
		Select("id", "reservation_id", "equipment_type_id", "quantity", "start_time", "end_time", "quote").
		Where(goqu.C("reservation_id").In(orderIDs)).
		Order(goqu.C("reservation_id").Asc(), goqu.C("start_time").Asc(), goqu.C("id").Asc())

	rows, err := s.query(ctx, h, actionLoadOrderItems, stmt)
	if err != nil {
		return nil, err
	}

	itemRows := make([]itemRow, 0)

	for rows.Next() {
		var row itemRow
		if scanErr := rows.Scan(&row.id, &row.reservationID, &row.equipmentTypeID, &row.quantity, &row.start, &row.end, &row.quote); scanErr != nil {
			s.closeRows(ctx, rows)
			return nil, s.scanError(ctx, scanErr)
		}

		itemRows = append(itemRows, row)
	}

	rowsErr := s.rowsError(rows)
	s.closeRows(ctx, rows)

	if rowsErr != nil {
		return nil, rowsErr
	}

	allocations, err := s.loadAllocations(ctx, h, orderIDs)
	if err != nil {
		return nil, err
	}

	items := make(map[uuid.UUID][]booking.ReservationOrderItem, len(orderIDs))

	for _, row := range itemRows {
		item, buildErr := buildOrderItem(row, allocations[row.id])
		if buildErr != nil {
			return nil, errors.Join(store.ErrDecodingFailed, buildErr)
		}

		items[row.reservationID] = append(items[row.reservationID], item)
	}

	return items, nil
}

func (s Store) loadAllocations(ctx context.Context, h store.Handle, orderIDs []string) (map[uuid.UUID][]booking.Allocation, error) {
	stmt := dialect.From(goqu.T(tableAllocations).As("a")).Prepared(true).
		Select(goqu.I("a.id"), goqu.I("a.item_id"), goqu.I("a.equipment_unit_id"), goqu.I("a.start_time"), goqu.I("a.end_time")).
		Join(goqu.T(tableOrderItems).As("i"), goqu.On(goqu.I("i.id").Eq(goqu.I("a.item_id")))).
		Where(goqu.I("i.reservation_id").In(orderIDs)).
		Order(goqu.I("a.item_id").Asc(), goqu.I("a.id").Asc())

	rows, err := s.query(ctx, h, actionLoadAllocations, stmt)
	if err != nil {
		return nil, err
	}
	defer s.closeRows(ctx, rows)

	allocations := make(map[uuid.UUID][]booking.Allocation)

	for rows.Next() {
		var (
			id, itemID, unitID uuid.UUID
			start, end         time.Time
		)

		if err = rows.Scan(&id, &itemID, &unitID, &start, &end); err != nil {
			return nil, s.scanError(ctx, err)
		}

		window, rangeErr := booking.NewTimeRange(start, end)
		if rangeErr != nil {
			return nil, errors.Join(store.ErrDecodingFailed, rangeErr)
		}

		allocation, buildErr := booking.NewAllocation(id, unitID, window)
		if buildErr != nil {
			return nil, errors.Join(store.ErrDecodingFailed, buildErr)
		}

		allocations[itemID] = append(allocations[itemID], allocation)
	}

	if err = s.rowsError(rows); err != nil {
		return nil, err
	}

	return allocations, nil
}

func buildOrderItem(row itemRow, allocations []booking.Allocation) (booking.ReservationOrderItem, error) {
	window, err := booking.NewTimeRange(row.start, row.end)
	if err != nil {
		return booking.ReservationOrderItem{}, err
	}

	quote, err := shell.DecodePayload[booking.Quote](row.quote)
	if err != nil {
		return booking.ReservationOrderItem{}, err
	}

	return booking.NewReservationOrderItem(row.id, row.equipmentTypeID, row.quantity, window, quote, allocations...)
}

func allocationRecord(itemID uuid.UUID, allocation booking.Allocation) goqu.Record {
	return goqu.Record{
		"id":                allocation.ID().String(),
		"item_id":           itemID.String(),
		"equipment_unit_id": allocation.EquipmentUnitID().String(),
		"start_time":        allocation.Window().Start(),
		"end_time":          allocation.Window().End(),
	}
}

// overlaps renders the half-open overlap test start < window.end AND end > window.start.
func overlaps(start, end exp.IdentifierExpression, window booking.TimeRange) exp.ExpressionList {
	return goqu.And(start.Lt(window.End()), end.Gt(window.Start()))
}

func statusStrings(statuses []booking.ReservationStatus) []string {
	out := make([]string, len(statuses))
	for i, status := range statuses {
		out[i] = string(status)
	}

	return out
}

func reservationNotFound(reservationID uuid.UUID) error {
	return errors.Join(booking.ErrReservationNotFound, store.ErrNotFound, fmt.Errorf("reservation %s", reservationID))
}

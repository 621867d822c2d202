package postgresengine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/store/postgresengine"
)

var fixtureStart = time.Date(2031, time.March, 10, 9, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return fixtureStart.AddDate(0, 0, n)
}

func givenCustomer(t *testing.T, s postgresengine.Store) uuid.UUID {
	t.Helper()

	id := uuid.New()
	err := s.RegisterCustomer(context.Background(), nil, id, "Ada Renter", fmt.Sprintf("%s@example.com", id), fixtureStart)
	require.NoError(t, err, "error in arranging test data")

	return id
}

func givenUnits(t *testing.T, s postgresengine.Store, equipmentTypeID uuid.UUID, count int) []inventory.EquipmentItem {
	t.Helper()

	items := make([]inventory.EquipmentItem, 0, count)
	for i := 0; i < count; i++ {
		item, err := inventory.RegisterEquipmentItem(
			uuid.New(),
			equipmentTypeID,
			fmt.Sprintf("SN-%s", uuid.NewString()[:8]),
			fixtureStart.Add(time.Duration(i)*time.Minute),
		)
		require.NoError(t, err, "error in arranging test data")
		require.NoError(t, s.InsertEquipmentItem(context.Background(), nil, item), "error in arranging test data")

		items = append(items, item)
	}

	return items
}

type orderLine struct {
	equipmentTypeID uuid.UUID
	quantity        int
	window          booking.TimeRange
	units           []uuid.UUID
}

func buildOrder(t *testing.T, customerID uuid.UUID, createdAt time.Time, lines ...orderLine) booking.ReservationOrder {
	t.Helper()

	items := make([]booking.ReservationOrderItem, 0, len(lines))
	for _, line := range lines {
		allocations := make([]booking.Allocation, 0, len(line.units))
		for _, unitID := range line.units {
			allocation, err := booking.NewAllocation(uuid.New(), unitID, line.window)
			require.NoError(t, err, "error in arranging test data")
			allocations = append(allocations, allocation)
		}

		quote := booking.Quote{
			EquipmentTypeID: line.equipmentTypeID,
			StartTime:       line.window.Start(),
			EndTime:         line.window.End(),
			Quantity:        line.quantity,
			Total:           booking.Cents(int64(line.quantity) * 2500),
		}

		item, err := booking.NewReservationOrderItem(uuid.New(), line.equipmentTypeID, line.quantity, line.window, quote, allocations...)
		require.NoError(t, err, "error in arranging test data")
		items = append(items, item)
	}

	order, err := booking.NewReservationOrder(uuid.New(), customerID, items, createdAt)
	require.NoError(t, err, "error in arranging test data")

	return order
}

func givenOrder(t *testing.T, s postgresengine.Store, order booking.ReservationOrder) booking.ReservationOrder {
	t.Helper()

	require.NoError(t, s.InsertReservationOrder(context.Background(), nil, order), "error in arranging test data")

	return order
}

func givenOrderInStatus(
	t *testing.T,
	s postgresengine.Store,
	order booking.ReservationOrder,
	status booking.ReservationStatus,
) booking.ReservationOrder {
	t.Helper()

	givenOrder(t, s, order)
	if status == booking.StatusPending {
		return order
	}

	updated := booking.ReconstituteReservationOrder(
		order.ID(), order.CustomerID(), order.Items(), status, order.CreatedAt(), order.Total(),
	)
	err := s.UpdateReservationStatus(context.Background(), nil, updated, booking.StatusPending)
	require.NoError(t, err, "error in arranging test data")

	return updated
}

func unitIDs(items []inventory.EquipmentItem) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.ID()
	}

	return ids
}

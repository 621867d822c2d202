package reservationview

import (
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
)

// AllocationView is one unit planned or bound for a line item.
type AllocationView struct {
	ID              uuid.UUID `json:"id"`
	EquipmentUnitID uuid.UUID `json:"equipmentUnitId"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
}

// ItemView is one line item of a reservation.
type ItemView struct {
	ID                uuid.UUID        `json:"id"`
	EquipmentTypeID   uuid.UUID        `json:"equipmentTypeId"`
	RequestedQuantity int              `json:"requestedQuantity"`
	StartTime         time.Time        `json:"startTime"`
	EndTime           time.Time        `json:"endTime"`
	FullyAllocated    bool             `json:"fullyAllocated"`
	Quote             booking.Quote    `json:"quote"`
	Allocations       []AllocationView `json:"allocations"`
}

// ReservationView is the flattened form of a ReservationOrder.
type ReservationView struct {
	ID         uuid.UUID                 `json:"id"`
	CustomerID uuid.UUID                 `json:"customerId"`
	Status     booking.ReservationStatus `json:"status"`
	CreatedAt  time.Time                 `json:"createdAt"`
	Total      booking.Money             `json:"total"`
	Items      []ItemView                `json:"items"`
}

// FromOrder flattens order.
func FromOrder(order booking.ReservationOrder) ReservationView {
	items := make([]ItemView, 0, len(order.Items()))

	for _, item := range order.Items() {
		allocations := make([]AllocationView, 0, len(item.Allocations()))
		for _, allocation := range item.Allocations() {
			allocations = append(allocations, AllocationView{
				ID:              allocation.ID(),
				EquipmentUnitID: allocation.EquipmentUnitID(),
				StartTime:       allocation.Window().Start(),
				EndTime:         allocation.Window().End(),
			})
		}

		items = append(items, ItemView{
			ID:                item.ID(),
			EquipmentTypeID:   item.EquipmentTypeID(),
			RequestedQuantity: item.RequestedQuantity(),
			StartTime:         item.Window().Start(),
			EndTime:           item.Window().End(),
			FullyAllocated:    item.IsFullyAllocated(),
			Quote:             item.Quote(),
			Allocations:       allocations,
		})
	}

	return ReservationView{
		ID:         order.ID(),
		CustomerID: order.CustomerID(),
		Status:     order.Status(),
		CreatedAt:  order.CreatedAt(),
		Total:      order.Total(),
		Items:      items,
	}
}

// FromOrders flattens every order, keeping their order.
func FromOrders(orders []booking.ReservationOrder) []ReservationView {
	views := make([]ReservationView, 0, len(orders))
	for _, order := range orders {
		views = append(views, FromOrder(order))
	}

	return views
}

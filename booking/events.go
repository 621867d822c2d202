package booking

import (
	"time"

	"github.com/google/uuid"
)

// Event types staged in the outbox by the reservation use cases.
const (
	ReservationCreatedEventType   = "ReservationCreated"
	ReservationConfirmedEventType = "ReservationConfirmed"
	ReservationCancelledEventType = "ReservationCancelled"
	ReservationStartedEventType   = "ReservationStarted"
	ReservationCompletedEventType = "ReservationCompleted"
)

// ReservationCreated is staged when a Pending order is admitted.
type ReservationCreated struct {
	ReservationID    uuid.UUID `json:"reservationId"`
	CustomerID       uuid.UUID `json:"customerId"`
	EquipmentTypeID  uuid.UUID `json:"equipmentTypeId"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	Quantity         int       `json:"quantity"`
	TotalAmountCents int64     `json:"totalAmountCents"`
	Currency         string    `json:"currency"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// ReservationConfirmed is staged once per line item when an order is confirmed.
// The allocation handler consumes it to bind physical units.
type ReservationConfirmed struct {
	ReservationID    uuid.UUID `json:"reservationId"`
	ItemID           uuid.UUID `json:"itemId"`
	CustomerID       uuid.UUID `json:"customerId"`
	EquipmentTypeID  uuid.UUID `json:"equipmentTypeId"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	Quantity         int       `json:"quantity"`
	QuotedPriceCents int64     `json:"quotedPriceCents"`
	Currency         string    `json:"currency"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// ReservationCancelled is staged when a Pending or Confirmed order is cancelled.
type ReservationCancelled struct {
	ReservationID uuid.UUID         `json:"reservationId"`
	CustomerID    uuid.UUID         `json:"customerId"`
	PriorStatus   ReservationStatus `json:"priorStatus"`
	Reason        string            `json:"reason"`
	OccurredAt    time.Time         `json:"occurredAt"`
}

// ReservationStarted is staged when the equipment of a Confirmed order is handed over.
type ReservationStarted struct {
	ReservationID uuid.UUID `json:"reservationId"`
	CustomerID    uuid.UUID `json:"customerId"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// ReservationCompleted is staged when the equipment of an InProgress order is returned.
type ReservationCompleted struct {
	ReservationID uuid.UUID `json:"reservationId"`
	CustomerID    uuid.UUID `json:"customerId"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// BuildReservationCreated builds the creation payload from the order's first line item.
func BuildReservationCreated(order ReservationOrder, occurredAt time.Time) ReservationCreated {
	event := ReservationCreated{
		ReservationID:    order.ID(),
		CustomerID:       order.CustomerID(),
		TotalAmountCents: order.Total().AmountCents,
		Currency:         order.Total().Currency,
		OccurredAt:       occurredAt.UTC(),
	}

	if items := order.Items(); len(items) > 0 {
		event.EquipmentTypeID = items[0].EquipmentTypeID()
		event.StartTime = items[0].Window().Start()
		event.EndTime = items[0].Window().End()
		event.Quantity = items[0].RequestedQuantity()
	}

	return event
}

// BuildReservationConfirmed builds one confirmation payload per line item.
func BuildReservationConfirmed(order ReservationOrder, occurredAt time.Time) []ReservationConfirmed {
	items := order.Items()
	events := make([]ReservationConfirmed, 0, len(items))

	for _, item := range items {
		events = append(events, ReservationConfirmed{
			ReservationID:    order.ID(),
			ItemID:           item.ID(),
			CustomerID:       order.CustomerID(),
			EquipmentTypeID:  item.EquipmentTypeID(),
			StartTime:        item.Window().Start(),
			EndTime:          item.Window().End(),
			Quantity:         item.RequestedQuantity(),
			QuotedPriceCents: item.Quote().Total.AmountCents,
			Currency:         item.Quote().Total.Currency,
			OccurredAt:       occurredAt.UTC(),
		})
	}

	return events
}

package customerreservations

import (
	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/features/query/reservationview"
)

// CustomerReservations is one page of a customer's reservations.
type CustomerReservations struct {
	CustomerID   uuid.UUID                         `json:"customerId"`
	Reservations []reservationview.ReservationView `json:"reservations"`
	Count        int                               `json:"count"`
	Limit        int                               `json:"limit"`
	Offset       int                               `json:"offset"`
}

package reservationsinrange

import (
	"time"

	"github.com/Facupelli/equipment-rental/features/query/reservationview"
)

// ReservationsInRange lists the reservations overlapping a window.
type ReservationsInRange struct {
	StartTime    time.Time                         `json:"startTime"`
	EndTime      time.Time                         `json:"endTime"`
	Reservations []reservationview.ReservationView `json:"reservations"`
	Count        int                               `json:"count"`
}

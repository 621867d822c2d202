package getreservation

import (
	"context"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/features/query/reservationview"
	"github.com/Facupelli/equipment-rental/store"
)

// Store defines the persistence the QueryHandler needs.
type Store interface {
	FindReservationOrder(ctx context.Context, h store.Handle, reservationID uuid.UUID) (booking.ReservationOrder, error)
}

// QueryHandler loads one reservation.
type QueryHandler struct {
	store Store
}

// NewQueryHandler creates a new QueryHandler with the provided Store dependency.
func NewQueryHandler(s Store) QueryHandler {
	return QueryHandler{
		store: s,
	}
}

// Handle returns the reservation or an error matching booking.ErrReservationNotFound.
func (h QueryHandler) Handle(ctx context.Context, query Query) (reservationview.ReservationView, error) {
	ctx = store.WithEventualConsistency(ctx)

	order, err := h.store.FindReservationOrder(ctx, nil, query.ReservationID)
	if err != nil {
		return reservationview.ReservationView{}, err
	}

	return reservationview.FromOrder(order), nil
}

package reservationsinrange

import (
	"context"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/features/query/reservationview"
	"github.com/Facupelli/equipment-rental/store"
)

// Store defines the persistence the QueryHandler needs.
type Store interface {
	FindReservationsInRange(
		ctx context.Context,
		h store.Handle,
		window booking.TimeRange,
		statuses []booking.ReservationStatus,
	) ([]booking.ReservationOrder, error)
}

// QueryHandler lists reservations overlapping a window.
type QueryHandler struct {
	store Store
}

// NewQueryHandler creates a new QueryHandler with the provided Store dependency.
func NewQueryHandler(s Store) QueryHandler {
	return QueryHandler{
		store: s,
	}
}

func (h QueryHandler) Handle(ctx context.Context, query Query) (ReservationsInRange, error) {
	if query.Window.IsZero() {
		return ReservationsInRange{}, booking.ErrInvalidTimeRange
	}

	query = BuildQuery(query.Window, query.Statuses)
	ctx = store.WithEventualConsistency(ctx)

	orders, err := h.store.FindReservationsInRange(ctx, nil, query.Window, query.Statuses)
	if err != nil {
		return ReservationsInRange{}, err
	}

	return ReservationsInRange{
		StartTime:    query.Window.Start(),
		EndTime:      query.Window.End(),
		Reservations: reservationview.FromOrders(orders),
		Count:        len(orders),
	}, nil
}

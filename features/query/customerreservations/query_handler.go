package customerreservations

import (
	"context"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/features/query/reservationview"
	"github.com/Facupelli/equipment-rental/store"
)

// Store defines the persistence the QueryHandler needs.
type Store interface {
	FindCustomerReservations(
		ctx context.Context,
		h store.Handle,
		customerID uuid.UUID,
		statuses []booking.ReservationStatus,
		limit, offset int,
	) ([]booking.ReservationOrder, error)
}

// QueryHandler pages through a customer's reservations.
type QueryHandler struct {
	store Store
}

// NewQueryHandler creates a new QueryHandler with the provided Store dependency.
func NewQueryHandler(s Store) QueryHandler {
	return QueryHandler{
		store: s,
	}
}

// Handle reads the page from the replica when one is configured.
func (h QueryHandler) Handle(ctx context.Context, query Query) (CustomerReservations, error) {
	query = BuildQuery(query.CustomerID, query.Statuses, query.Limit, query.Offset)
	ctx = store.WithEventualConsistency(ctx)

	orders, err := h.store.FindCustomerReservations(ctx, nil, query.CustomerID, query.Statuses, query.Limit, query.Offset)
	if err != nil {
		return CustomerReservations{}, err
	}

	return CustomerReservations{
		CustomerID:   query.CustomerID,
		Reservations: reservationview.FromOrders(orders),
		Count:        len(orders),
		Limit:        query.Limit,
		Offset:       query.Offset,
	}, nil
}

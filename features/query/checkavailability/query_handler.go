package checkavailability

import (
	"context"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/availability"
	"github.com/Facupelli/equipment-rental/store"
)

// Store defines the persistence the QueryHandler needs.
type Store interface {
	CountRentableUnits(ctx context.Context, h store.Handle, equipmentTypeID uuid.UUID) (int, error)
}

// Checker runs the sweep line. availability.Engine implements it.
type Checker interface {
	CheckAvailability(ctx context.Context, h store.Handle, q availability.Query) (availability.Result, error)
}

// QueryHandler answers availability questions.
type QueryHandler struct {
	store   Store
	checker Checker
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(s Store, checker Checker) QueryHandler {
	return QueryHandler{
		store:   s,
		checker: checker,
	}
}

// Handle counts the rentable units of the type and runs the sweep line against its blocking bookings.
func (h QueryHandler) Handle(ctx context.Context, query Query) (Availability, error) {
	ctx = store.WithEventualConsistency(ctx)

	total, err := h.store.CountRentableUnits(ctx, nil, query.EquipmentTypeID)
	if err != nil {
		return Availability{}, err
	}

	result, err := h.checker.CheckAvailability(ctx, nil, availability.Query{
		EquipmentTypeID:   query.EquipmentTypeID,
		Window:            query.Window,
		RequestedQuantity: query.Quantity,
		TotalInventory:    total,
	})
	if err != nil {
		return Availability{}, err
	}

	return Availability{
		EquipmentTypeID:   query.EquipmentTypeID,
		StartTime:         query.Window.Start(),
		EndTime:           query.Window.End(),
		RequestedQuantity: query.Quantity,
		TotalInventory:    total,
		IsAvailable:       result.IsAvailable,
		PeakUsage:         result.PeakUsage,
		RemainingCapacity: result.RemainingCapacity,
	}, nil
}

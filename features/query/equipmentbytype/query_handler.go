package equipmentbytype

import (
	"context"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/store"
)

// Store defines the persistence the QueryHandler needs.
type Store interface {
	FindEquipmentItemsByType(
		ctx context.Context,
		h store.Handle,
		equipmentTypeID uuid.UUID,
		statuses []inventory.ItemStatus,
	) ([]inventory.EquipmentItem, error)
}

// QueryHandler lists the units of an equipment type.
type QueryHandler struct {
	store Store
}

// NewQueryHandler creates a new QueryHandler with the provided Store dependency.
func NewQueryHandler(s Store) QueryHandler {
	return QueryHandler{
		store: s,
	}
}

// Handle reads the units from the replica when one is configured. An unknown type has no units.
func (h QueryHandler) Handle(ctx context.Context, query Query) (EquipmentByType, error) {
	ctx = store.WithEventualConsistency(ctx)

	items, err := h.store.FindEquipmentItemsByType(ctx, nil, query.EquipmentTypeID, query.Statuses)
	if err != nil {
		return EquipmentByType{}, err
	}

	return fromItems(query.EquipmentTypeID, items), nil
}

package registerequipment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/store"
)

// Store defines the persistence the CommandHandler needs.
type Store interface {
	InTransaction(ctx context.Context, fn store.TxFunc) error
	FindEquipmentItem(ctx context.Context, h store.Handle, itemID uuid.UUID) (inventory.EquipmentItem, error)
	InsertEquipmentItem(ctx context.Context, h store.Handle, item inventory.EquipmentItem) error
}

// CommandHandler registers equipment units.
type CommandHandler struct {
	store Store
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(s Store) CommandHandler {
	return CommandHandler{store: s}
}

// Handle registers the unit. A serial number taken by another unit fails with store.ErrDuplicateKey.
func (h CommandHandler) Handle(ctx context.Context, command Command) (shell.HandlerResult, error) {
	item, err := inventory.RegisterEquipmentItem(command.ItemID, command.EquipmentTypeID, command.SerialNumber, command.OccurredAt)
	if err != nil {
		return shell.NewErrorResult(shell.RetryMetrics{}), err
	}

	var idempotent bool

	err = h.store.InTransaction(store.WithStrongConsistency(ctx), func(ctx context.Context, tx store.Handle) error {
		existing, findErr := h.store.FindEquipmentItem(ctx, tx, command.ItemID)
		switch {
		case findErr == nil && existing.SerialNumber() == item.SerialNumber():
			idempotent = true
			return nil
		case findErr == nil:
			return errors.Join(store.ErrDuplicateKey, fmt.Errorf("item %s is registered with serial number %s", existing.ID(), existing.SerialNumber()))
		case !errors.Is(findErr, inventory.ErrEquipmentItemNotFound):
			return findErr
		}

		return h.store.InsertEquipmentItem(ctx, tx, item)
	})

	metrics := shell.RetryMetrics{Attempts: 1, LastErrorType: "none"}

	switch {
	case err != nil:
		metrics.LastErrorType = "other"
		return shell.NewErrorResult(metrics), err
	case idempotent:
		return shell.NewIdempotentResult(metrics), nil
	default:
		return shell.NewSuccessResult(metrics), nil
	}
}

package changeequipmentstatus

import (
	"context"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/store"
)

// Store defines the persistence the CommandHandler needs.
type Store interface {
	InTransaction(ctx context.Context, fn store.TxFunc) error
	FindEquipmentItem(ctx context.Context, h store.Handle, itemID uuid.UUID) (inventory.EquipmentItem, error)
	SaveEquipmentItems(ctx context.Context, h store.Handle, items ...inventory.EquipmentItem) error
}

// CommandHandler changes the status of one unit.
type CommandHandler struct {
	store        Store
	retryOptions []shell.RetryOption
}

// Option configures a CommandHandler.
type Option func(*CommandHandler)

// WithRetryOptions sets a custom retry configuration for the handler.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(h *CommandHandler) {
		h.retryOptions = opts
	}
}

// NewCommandHandler creates a new CommandHandler with optional configuration.
func NewCommandHandler(s Store, opts ...Option) CommandHandler {
	handler := CommandHandler{store: s}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle applies the change and retries when the allocation handler moved the unit in between.
func (h CommandHandler) Handle(ctx context.Context, command Command) (shell.HandlerResult, error) {
	var isIdempotent bool

	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		idempotent, execErr := h.executeCommand(retryCtx, command)
		isIdempotent = idempotent

		return execErr
	}, h.retryOptions...)

	if isIdempotent {
		return shell.NewIdempotentResult(retryMetrics), err
	}

	if err != nil {
		return shell.NewErrorResult(retryMetrics), err
	}

	return shell.NewSuccessResult(retryMetrics), nil
}

func (h CommandHandler) executeCommand(ctx context.Context, command Command) (bool, error) {
	var idempotent bool

	ctx = store.WithStrongConsistency(ctx)

	err := h.store.InTransaction(ctx, func(ctx context.Context, tx store.Handle) error {
		idempotent = false

		item, err := h.store.FindEquipmentItem(ctx, tx, command.ItemID)
		if err != nil {
			return err
		}

		if item.Status() == command.Status {
			idempotent = true
			return nil
		}

		changed, err := item.ChangeStatus(command.Status, command.Reason, command.OccurredAt)
		if err != nil {
			return err
		}

		return h.store.SaveEquipmentItems(ctx, tx, changed)
	})

	return idempotent, err
}

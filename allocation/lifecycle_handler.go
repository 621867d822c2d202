package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/store"
)

const logMsgUnitsTransitioned = "bound equipment transitioned"

// LifecycleHandler keeps bound units in step with their reservation:
// Allocated -> InUse on start, Allocated/InUse -> Available on completion or cancellation.
type LifecycleHandler struct {
	store Store
	handlerConfig
}

// NewLifecycleHandler creates a LifecycleHandler.
func NewLifecycleHandler(s Store, opts ...Option) LifecycleHandler {
	return LifecycleHandler{store: s, handlerConfig: buildConfig(opts)}
}

// Handle transitions the bound units with retry on concurrency conflicts.
// A reservation without bound units, or whose units already moved, is an idempotent no-op.
func (h LifecycleHandler) Handle(ctx context.Context, command LifecycleCommand) (shell.HandlerResult, error) {
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

func (h LifecycleHandler) executeCommand(ctx context.Context, command LifecycleCommand) (bool, error) {
	var changed []inventory.EquipmentItem

	err := h.store.InTransaction(ctx, func(ctx context.Context, tx store.Handle) error {
		changed = nil

		bound, err := h.store.FindEquipmentItemsByReservation(ctx, tx, command.ReservationID, uuid.Nil)
		if err != nil {
			return err
		}

		now := h.now()

		for _, item := range bound {
			next, moved, err := h.transition(item, command, now)
			if err != nil {
				return err
			}

			if moved {
				changed = append(changed, next)
			}
		}

		if len(changed) == 0 {
			return nil
		}

		return h.store.SaveEquipmentItems(ctx, tx, changed...)
	})
	if err != nil {
		return false, err
	}

	if len(changed) == 0 {
		return true, nil
	}

	shell.LogInfo(ctx, h.logger, h.contextualLogger, logMsgUnitsTransitioned,
		logAttrReservationID, command.ReservationID.String(),
		"units", len(changed),
		"release", command.Release,
	)

	return false, nil
}

func (h LifecycleHandler) transition(
	item inventory.EquipmentItem,
	command LifecycleCommand,
	now time.Time,
) (inventory.EquipmentItem, bool, error) {
	if command.Release {
		next, err := item.Release(command.ReservationID, now)
		return next, err == nil, err
	}

	if item.Status() != inventory.StatusAllocated {
		return item, false, nil
	}

	next, err := item.MarkInUse(now)

	return next, err == nil, err
}

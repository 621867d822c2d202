package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/store"
)

const (
	logMsgAlreadyAllocated = "reservation already has bound equipment, skipping"
	logMsgNotConfirmed     = "reservation is no longer confirmed, skipping allocation"
	logMsgShortfall        = "insufficient equipment for confirmed reservation, operator action required"
	logMsgAllocated        = "equipment allocated to reservation"
	logAttrReservationID   = "reservation_id"
	logAttrEquipmentType   = "equipment_type_id"
	logAttrStatus          = "reservation_status"
	logAttrRequested       = "requested"
	logAttrFound           = "found"
	logAttrUnitIDs         = "unit_ids"
)

// Handler binds Available units to a confirmed reservation line item.
type Handler struct {
	store Store
	handlerConfig
}

// Option configures a Handler or a LifecycleHandler.
type Option func(*handlerConfig)

type handlerConfig struct {
	retryOptions     []shell.RetryOption
	turnaround       time.Duration
	now              func() time.Time
	logger           store.Logger
	contextualLogger store.ContextualLogger
}

// WithRetryOptions sets a custom retry configuration.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(c *handlerConfig) {
		c.retryOptions = opts
	}
}

// WithTurnaroundBuffer keeps a gap of d between the reservation and any other allocation of a candidate unit.
func WithTurnaroundBuffer(d time.Duration) Option {
	return func(c *handlerConfig) {
		c.turnaround = d
	}
}

// WithClock replaces time.Now for status history timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *handlerConfig) {
		c.now = now
	}
}

// WithLogger sets a basic logger.
func WithLogger(logger store.Logger) Option {
	return func(c *handlerConfig) {
		c.logger = logger
	}
}

// WithContextualLogger sets a context-aware logger.
func WithContextualLogger(logger store.ContextualLogger) Option {
	return func(c *handlerConfig) {
		c.contextualLogger = logger
	}
}

func buildConfig(opts []Option) handlerConfig {
	config := handlerConfig{now: time.Now}

	for _, opt := range opts {
		opt(&config)
	}

	return config
}

// NewHandler creates a Handler. Without WithRetryOptions the shell retry defaults apply.
func NewHandler(s Store, opts ...Option) Handler {
	return Handler{store: s, handlerConfig: buildConfig(opts)}
}

// Handle allocates units with retry on concurrency conflicts.
func (h Handler) Handle(ctx context.Context, command Command) (shell.HandlerResult, error) {
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

func (h Handler) executeCommand(ctx context.Context, command Command) (bool, error) {
	var idempotent bool

	err := h.store.InTransaction(ctx, func(ctx context.Context, tx store.Handle) error {
		idempotent = false

		status, err := h.store.FindReservationStatus(ctx, tx, command.ReservationID)
		if err != nil {
			return err
		}

		if status != booking.StatusConfirmed {
			idempotent = true
			shell.LogInfo(ctx, h.logger, h.contextualLogger, logMsgNotConfirmed,
				logAttrReservationID, command.ReservationID.String(),
				logAttrStatus, string(status),
			)

			return nil
		}

		bound, err := h.store.FindEquipmentItemsByReservation(ctx, tx, command.ReservationID, command.EquipmentTypeID)
		if err != nil {
			return err
		}

		if len(bound) > 0 {
			idempotent = true
			shell.LogInfo(ctx, h.logger, h.contextualLogger, logMsgAlreadyAllocated,
				logAttrReservationID, command.ReservationID.String(),
			)

			return nil
		}

		candidates, err := h.store.FindAllocationCandidates(ctx, tx, CandidateQuery{
			ReservationID:   command.ReservationID,
			EquipmentTypeID: command.EquipmentTypeID,
			Window:          command.Window,
			Turnaround:      h.turnaround,
			Limit:           command.Quantity,
		})
		if err != nil {
			return err
		}

		if len(candidates) < command.Quantity {
			shortfall := errors.Join(
				ErrInsufficientInventory,
				fmt.Errorf("reservation %s needs %d units of %s, found %d",
					command.ReservationID, command.Quantity, command.EquipmentTypeID, len(candidates)),
			)
			shell.LogError(ctx, h.logger, h.contextualLogger, logMsgShortfall, shortfall,
				logAttrReservationID, command.ReservationID.String(),
				logAttrEquipmentType, command.EquipmentTypeID.String(),
				logAttrRequested, command.Quantity,
				logAttrFound, len(candidates),
			)

			return shortfall
		}

		return h.bind(ctx, tx, command, candidates[:command.Quantity])
	})

	return idempotent, err
}

func (h Handler) bind(ctx context.Context, tx store.Handle, command Command, candidates []inventory.EquipmentItem) error {
	now := h.now()
	allocated := make([]inventory.EquipmentItem, 0, len(candidates))
	allocations := make([]booking.Allocation, 0, len(candidates))
	unitIDs := make([]string, 0, len(candidates))

	for _, candidate := range candidates {
		item, err := candidate.MarkAllocated(command.ReservationID, now)
		if err != nil {
			return err
		}

		allocation, err := booking.NewAllocation(uuid.New(), item.ID(), command.Window)
		if err != nil {
			return err
		}

		allocated = append(allocated, item)
		allocations = append(allocations, allocation)
		unitIDs = append(unitIDs, item.ID().String())
	}

	if err := h.store.SaveEquipmentItems(ctx, tx, allocated...); err != nil {
		return err
	}

	if command.ItemID != uuid.Nil {
		if err := h.store.ReplaceItemAllocations(ctx, tx, command.ItemID, allocations); err != nil {
			return err
		}
	}

	shell.LogInfo(ctx, h.logger, h.contextualLogger, logMsgAllocated,
		logAttrReservationID, command.ReservationID.String(),
		logAttrUnitIDs, unitIDs,
	)

	return nil
}

package cancelreservation

import (
	"context"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/outbox"
	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/store"
)

// Store defines the persistence the CommandHandler needs.
type Store interface {
	InTransaction(ctx context.Context, fn store.TxFunc) error
	FindReservationOrder(ctx context.Context, h store.Handle, reservationID uuid.UUID) (booking.ReservationOrder, error)
	UpdateReservationStatus(ctx context.Context, h store.Handle, order booking.ReservationOrder, prior booking.ReservationStatus) error
	AppendOutboxEvents(ctx context.Context, h store.Handle, events ...outbox.Event) error
}

// CommandHandler cancels reservations and stages ReservationCancelled.
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

func (h CommandHandler) Handle(ctx context.Context, command Command) (shell.HandlerResult, error) {
	retryMetrics, err := shell.RetryWithExponentialBackoff(ctx, func(retryCtx context.Context) error {
		return h.executeCommand(retryCtx, command)
	}, h.retryOptions...)

	if err != nil {
		return shell.NewErrorResult(retryMetrics), err
	}

	return shell.NewSuccessResult(retryMetrics), nil
}

func (h CommandHandler) executeCommand(ctx context.Context, command Command) error {
	ctx = store.WithStrongConsistency(ctx)

	return h.store.InTransaction(ctx, func(ctx context.Context, tx store.Handle) error {
		order, err := h.store.FindReservationOrder(ctx, tx, command.ReservationID)
		if err != nil {
			return err
		}

		cancelled, err := order.Cancel()
		if err != nil {
			return err
		}

		event, err := outbox.NewEvent(booking.ReservationCancelledEventType, cancelled.ID(), booking.ReservationCancelled{
			ReservationID: cancelled.ID(),
			CustomerID:    cancelled.CustomerID(),
			PriorStatus:   order.Status(),
			Reason:        command.Reason,
			OccurredAt:    command.OccurredAt,
		}, command.OccurredAt)
		if err != nil {
			return err
		}

		if err = h.store.UpdateReservationStatus(ctx, tx, cancelled, order.Status()); err != nil {
			return err
		}

		return h.store.AppendOutboxEvents(ctx, tx, event)
	})
}

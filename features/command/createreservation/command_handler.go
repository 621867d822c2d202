package createreservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/availability"
	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/outbox"
	"github.com/Facupelli/equipment-rental/pricing"
	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/store"
)

// Store defines the persistence the CommandHandler needs. Every call inside the admission
// transaction receives its handle.
type Store interface {
	InTransaction(ctx context.Context, fn store.TxFunc) error
	CustomerExists(ctx context.Context, h store.Handle, customerID uuid.UUID) (bool, error)
	FindReservationStatus(ctx context.Context, h store.Handle, reservationID uuid.UUID) (booking.ReservationStatus, error)
	LockEquipmentType(ctx context.Context, h store.Handle, equipmentTypeID uuid.UUID) error
	CountRentableUnits(ctx context.Context, h store.Handle, equipmentTypeID uuid.UUID) (int, error)
	InsertReservationOrder(ctx context.Context, h store.Handle, order booking.ReservationOrder) error
	AppendOutboxEvents(ctx context.Context, h store.Handle, events ...outbox.Event) error
}

// CandidateFinder resolves concrete units for a request, usually an availability.Engine.
type CandidateFinder interface {
	FindCandidateUnits(ctx context.Context, h store.Handle, q availability.Query) (availability.Candidates, error)
}

// QuoteCalculator prices a line item, usually a *pricing.Calculator.
type QuoteCalculator interface {
	CalculateQuote(ctx context.Context, req pricing.QuoteRequest) (booking.Quote, error)
}

// CommandHandler admits reservations. It validates, checks the customer, resolves units under the
// equipment type lock, then writes the order and its outbox event in one transaction.
type CommandHandler struct {
	store        Store
	candidates   CandidateFinder
	pricing      QuoteCalculator
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
func NewCommandHandler(s Store, candidates CandidateFinder, quotes QuoteCalculator, opts ...Option) CommandHandler {
	handler := CommandHandler{
		store:      s,
		candidates: candidates,
		pricing:    quotes,
	}

	for _, opt := range opts {
		opt(&handler)
	}

	return handler
}

// Handle executes the admission with retry on concurrency conflicts.
// Validation, unknown customers and insufficient capacity fail without retry.
func (h CommandHandler) Handle(ctx context.Context, command Command) (shell.HandlerResult, error) {
	if err := Validate(command); err != nil {
		return shell.NewErrorResult(shell.RetryMetrics{}), err
	}

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

		_, err := h.store.FindReservationStatus(ctx, tx, command.ReservationID)
		switch {
		case err == nil:
			idempotent = true
			return nil
		case !errors.Is(err, booking.ErrReservationNotFound):
			return err
		}

		exists, err := h.store.CustomerExists(ctx, tx, command.CustomerID)
		if err != nil {
			return err
		}

		if !exists {
			return errors.Join(booking.ErrCustomerNotFound, fmt.Errorf("customer %s", command.CustomerID))
		}

		if err = h.store.LockEquipmentType(ctx, tx, command.EquipmentTypeID); err != nil {
			return err
		}

		totalInventory, err := h.store.CountRentableUnits(ctx, tx, command.EquipmentTypeID)
		if err != nil {
			return err
		}

		candidates, err := h.candidates.FindCandidateUnits(ctx, tx, availability.Query{
			EquipmentTypeID:   command.EquipmentTypeID,
			Window:            command.Window,
			RequestedQuantity: command.Quantity,
			TotalInventory:    totalInventory,
		})
		if err != nil {
			return err
		}

		if !candidates.Available() {
			return errors.Join(
				booking.ErrInsufficientCapacity,
				fmt.Errorf("%d units of %s requested for %s, remaining capacity %d",
					command.Quantity, command.EquipmentTypeID, command.Window, candidates.Result.RemainingCapacity),
			)
		}

		quote, err := h.pricing.CalculateQuote(ctx, pricing.QuoteRequest{
			EquipmentTypeID: command.EquipmentTypeID,
			Window:          command.Window,
			CustomerID:      command.CustomerID,
			PromoCode:       command.PromoCode,
			Quantity:        command.Quantity,
		})
		if err != nil {
			return err
		}

		order, err := BuildOrder(command, quote, candidates.UnitIDs)
		if err != nil {
			return err
		}

		event, err := outbox.NewEvent(
			booking.ReservationCreatedEventType,
			order.ID(),
			booking.BuildReservationCreated(order, command.OccurredAt),
			command.OccurredAt,
		)
		if err != nil {
			return err
		}

		if err = h.store.InsertReservationOrder(ctx, tx, order); err != nil {
			return err
		}

		return h.store.AppendOutboxEvents(ctx, tx, event)
	})

	// a concurrent request with the same id committed first
	if errors.Is(err, store.ErrDuplicateKey) {
		return true, nil
	}

	return idempotent, err
}

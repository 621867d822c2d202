package registercustomer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/store"
)

// ErrInvalidCustomer is returned when the name is empty or the email is not a plain address.
var ErrInvalidCustomer = errors.New("customer needs a name and a valid email")

// Store defines the persistence the CommandHandler needs.
type Store interface {
	CustomerExists(ctx context.Context, h store.Handle, customerID uuid.UUID) (bool, error)
	RegisterCustomer(ctx context.Context, h store.Handle, customerID uuid.UUID, name, email string, at time.Time) error
}

// CommandHandler registers customers.
type CommandHandler struct {
	store Store
}

// NewCommandHandler creates a new CommandHandler.
func NewCommandHandler(s Store) CommandHandler {
	return CommandHandler{store: s}
}

// Handle registers the customer. A customer id that already exists is an idempotent no-op;
// an email taken by another customer fails with store.ErrDuplicateKey.
func (h CommandHandler) Handle(ctx context.Context, command Command) (shell.HandlerResult, error) {
	metrics := shell.RetryMetrics{Attempts: 1, LastErrorType: "none"}

	if err := validate(command); err != nil {
		return shell.NewErrorResult(shell.RetryMetrics{}), err
	}

	ctx = store.WithStrongConsistency(ctx)

	exists, err := h.store.CustomerExists(ctx, nil, command.CustomerID)
	if err != nil {
		metrics.LastErrorType = "other"
		return shell.NewErrorResult(metrics), err
	}

	if exists {
		return shell.NewIdempotentResult(metrics), nil
	}

	if err = h.store.RegisterCustomer(ctx, nil, command.CustomerID, command.Name, command.Email, command.OccurredAt); err != nil {
		metrics.LastErrorType = "other"
		return shell.NewErrorResult(metrics), err
	}

	return shell.NewSuccessResult(metrics), nil
}

func validate(command Command) error {
	if command.CustomerID == uuid.Nil {
		return booking.ErrMissingIdentifier
	}

	if command.Name == "" {
		return errors.Join(ErrInvalidCustomer, errors.New("name is empty"))
	}

	address, err := mail.ParseAddress(command.Email)
	if err != nil || address.Address != command.Email {
		return errors.Join(ErrInvalidCustomer, fmt.Errorf("email %q", command.Email))
	}

	return nil
}

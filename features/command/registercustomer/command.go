package registercustomer

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	commandType = "RegisterCustomer"
)

// Command represents the intent to register a customer.
type Command struct {
	CustomerID uuid.UUID
	Name       string
	Email      string
	OccurredAt time.Time
}

// CommandType returns the type identifier for this command, used for observability and routing.
func (c Command) CommandType() string {
	return commandType
}

// BuildCommand creates a new Command with the provided parameters.
func BuildCommand(customerID uuid.UUID, name, email string, occurredAt time.Time) Command {
	return Command{
		CustomerID: customerID,
		Name:       strings.TrimSpace(name),
		Email:      strings.ToLower(strings.TrimSpace(email)),
		OccurredAt: occurredAt.UTC(),
	}
}

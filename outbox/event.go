package outbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/shell"
)

var (
	// ErrEmptyEventType is returned when an event is staged without a type tag.
	ErrEmptyEventType = errors.New("outbox event type must not be empty")

	// ErrHandlerFailed wraps the errors returned by bus subscribers.
	ErrHandlerFailed = errors.New("event handler failed")
)

// Event is one staged domain event.
type Event struct {
	ID          uuid.UUID
	EventType   string
	AggregateID uuid.UUID
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
	Attempts    int
	LastError   string
}

// NewEvent encodes payload and builds an unpublished event for the aggregate.
func NewEvent(eventType string, aggregateID uuid.UUID, payload any, now time.Time) (Event, error) {
	if eventType == "" {
		return Event{}, ErrEmptyEventType
	}

	data, err := shell.EncodePayload(payload)
	if err != nil {
		return Event{}, errors.Join(err, fmt.Errorf("staging %s", eventType))
	}

	return Event{
		ID:          uuid.New(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     data,
		CreatedAt:   now.UTC(),
	}, nil
}

// IsPublished reports whether the relay has delivered the event.
func (e Event) IsPublished() bool {
	return e.PublishedAt != nil
}

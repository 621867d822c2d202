package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the lifecycle state of a ReservationOrder.
type ReservationStatus string

const (
	StatusPending    ReservationStatus = "Pending"
	StatusConfirmed  ReservationStatus = "Confirmed"
	StatusInProgress ReservationStatus = "InProgress"
	StatusCompleted  ReservationStatus = "Completed"
	StatusCancelled  ReservationStatus = "Cancelled"
)

// BlockingStatuses are the statuses whose orders hold capacity.
var BlockingStatuses = []ReservationStatus{StatusPending, StatusConfirmed, StatusInProgress}

// IsBlocking reports whether an order in this status holds capacity.
func (s ReservationStatus) IsBlocking() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is one of the known statuses.
func (s ReservationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// ParseReservationStatus converts a stored or user-supplied string into a ReservationStatus.
func ParseReservationStatus(s string) (ReservationStatus, error) {
	status := ReservationStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("unknown reservation status %q", s)
	}

	return status, nil
}

// ReservationOrder is the aggregate root of a booking.
type ReservationOrder struct {
	id         uuid.UUID
	customerID uuid.UUID
	items      []ReservationOrderItem
	status     ReservationStatus
	createdAt  time.Time
	total      Money
}

// NewReservationOrder builds a Pending order. Its total is the sum of the item quote totals.
func NewReservationOrder(
	id uuid.UUID,
	customerID uuid.UUID,
	items []ReservationOrderItem,
	createdAt time.Time,
) (ReservationOrder, error) {
	if id == uuid.Nil || customerID == uuid.Nil {
		return ReservationOrder{}, ErrMissingIdentifier
	}

	total := Money{}
	for _, item := range items {
		var err error
		if total, err = total.Add(item.Quote().Total); err != nil {
			return ReservationOrder{}, err
		}
	}

	if total.Currency == "" {
		total.Currency = DefaultCurrency
	}

	return ReservationOrder{
		id:         id,
		customerID: customerID,
		items:      copyItems(items),
		status:     StatusPending,
		createdAt:  createdAt.UTC(),
		total:      total,
	}, nil
}

// ReconstituteReservationOrder rebuilds an order from persisted state without re-running creation rules.
func ReconstituteReservationOrder(
	id uuid.UUID,
	customerID uuid.UUID,
	items []ReservationOrderItem,
	status ReservationStatus,
	createdAt time.Time,
	total Money,
) ReservationOrder {
	return ReservationOrder{
		id:         id,
		customerID: customerID,
		items:      copyItems(items),
		status:     status,
		createdAt:  createdAt.UTC(),
		total:      total,
	}
}

func (o ReservationOrder) ID() uuid.UUID { return o.id }

func (o ReservationOrder) CustomerID() uuid.UUID { return o.customerID }

func (o ReservationOrder) Status() ReservationStatus { return o.status }

func (o ReservationOrder) CreatedAt() time.Time { return o.createdAt }

func (o ReservationOrder) Total() Money { return o.total }

// Items returns a copy of the order's line items.
func (o ReservationOrder) Items() []ReservationOrderItem {
	return copyItems(o.items)
}

// Confirm moves a Pending order with at least one item to Confirmed.
func (o ReservationOrder) Confirm() (ReservationOrder, error) {
	if o.status != StatusPending {
		return ReservationOrder{}, o.transitionError("confirm")
	}

	if len(o.items) == 0 {
		return ReservationOrder{}, errors.Join(
			ErrInvalidStateTransition,
			fmt.Errorf("cannot confirm order %s without items", o.id),
		)
	}

	return o.withStatus(StatusConfirmed), nil
}

// Cancel moves a Pending or Confirmed order to Cancelled.
func (o ReservationOrder) Cancel() (ReservationOrder, error) {
	if o.status != StatusPending && o.status != StatusConfirmed {
		return ReservationOrder{}, o.transitionError("cancel")
	}

	return o.withStatus(StatusCancelled), nil
}

// StartInProgress moves a Confirmed order to InProgress when the equipment is handed over.
func (o ReservationOrder) StartInProgress() (ReservationOrder, error) {
	if o.status != StatusConfirmed {
		return ReservationOrder{}, o.transitionError("start")
	}

	return o.withStatus(StatusInProgress), nil
}

// Complete moves an InProgress order to Completed when the equipment is returned.
func (o ReservationOrder) Complete() (ReservationOrder, error) {
	if o.status != StatusInProgress {
		return ReservationOrder{}, o.transitionError("complete")
	}

	return o.withStatus(StatusCompleted), nil
}

func (o ReservationOrder) withStatus(status ReservationStatus) ReservationOrder {
	next := o
	next.items = copyItems(o.items)
	next.status = status

	return next
}

func (o ReservationOrder) transitionError(action string) error {
	return errors.Join(
		ErrInvalidStateTransition,
		fmt.Errorf("cannot %s order %s in status %s", action, o.id, o.status),
	)
}

func copyItems(items []ReservationOrderItem) []ReservationOrderItem {
	out := make([]ReservationOrderItem, len(items))
	copy(out, items)

	return out
}

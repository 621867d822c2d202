package availability

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/Facupelli/equipment-rental/booking"
)

// Booking is one blocking booking of an equipment type: a window and the quantity it holds.
type Booking struct {
	Window   booking.TimeRange
	Quantity int
}

// Result is the outcome of an availability check.
type Result struct {
	IsAvailable       bool
	PeakUsage         int
	RemainingCapacity int
}

type sweepEvent struct {
	at    time.Time
	delta int
	isEnd bool
}

// PeakUsage returns the maximum concurrent quantity held by bookings inside window.
// Bookings are clipped to the window; bookings that collapse to zero length are ignored.
// At equal instants end events are processed before start events, so a booking ending at T
// and one starting at T never count as concurrent.
func PeakUsage(window booking.TimeRange, bookings []Booking) int {
	events := make([]sweepEvent, 0, 2*len(bookings))

	for _, b := range bookings {
		if b.Quantity <= 0 {
			continue
		}

		clipped, ok := b.Window.Clip(window)
		if !ok {
			continue
		}

		events = append(events,
			sweepEvent{at: clipped.Start(), delta: b.Quantity},
			sweepEvent{at: clipped.End(), delta: -b.Quantity, isEnd: true},
		)
	}

	slices.SortFunc(events, func(a, b sweepEvent) int {
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}

		switch {
		case a.isEnd == b.isEnd:
			return 0
		case a.isEnd:
			return -1
		default:
			return 1
		}
	})

	current, peak := 0, 0
	for _, e := range events {
		current += e.delta
		peak = max(peak, current)
	}

	return peak
}

// Check reports whether requestedQuantity more units fit into window next to the existing bookings.
func Check(window booking.TimeRange, requestedQuantity, totalInventory int, bookings []Booking) (Result, error) {
	if err := validateRequest(window, requestedQuantity, totalInventory); err != nil {
		return Result{}, err
	}

	peak := PeakUsage(window, bookings)

	return Result{
		IsAvailable:       peak+requestedQuantity <= totalInventory,
		PeakUsage:         peak,
		RemainingCapacity: totalInventory - peak,
	}, nil
}

func validateRequest(window booking.TimeRange, requestedQuantity, totalInventory int) error {
	if window.IsZero() {
		return booking.ErrInvalidTimeRange
	}

	if requestedQuantity <= 0 {
		return errors.Join(booking.ErrNonPositiveQuantity, fmt.Errorf("requested %d", requestedQuantity))
	}

	if totalInventory < 0 {
		return errors.Join(booking.ErrNegativeInventory, fmt.Errorf("total %d", totalInventory))
	}

	return nil
}

package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/store"
)

const (
	logMsgCapacityFragmented = "availability: sweep line has capacity but not enough units are free for the whole window"
	logMsgChecked            = "availability: checked"
	logAttrEquipmentTypeID   = "equipment_type_id"
	logAttrWindow            = "window"
	logAttrRequested         = "requested_quantity"
	logAttrTotalInventory    = "total_inventory"
	logAttrPeakUsage         = "peak_usage"
	logAttrFreeUnits         = "free_units"
	logAttrAvailable         = "available"
)

var (
	// ErrNilSource is returned when an Engine is constructed without a Source.
	ErrNilSource = errors.New("availability source must not be nil")

	// ErrNegativeTurnaroundBuffer is returned when a negative turnaround buffer is configured.
	ErrNegativeTurnaroundBuffer = errors.New("turnaround buffer must not be negative")
)

// Source supplies the booking and unit data the Engine works on.
// A nil Handle means the source uses its ambient connection.
type Source interface {
	FindBlockingBookings(
		ctx context.Context,
		h store.Handle,
		equipmentTypeID uuid.UUID,
		window booking.TimeRange,
	) ([]Booking, error)

	FindUnitSchedules(
		ctx context.Context,
		h store.Handle,
		equipmentTypeID uuid.UUID,
		window booking.TimeRange,
	) ([]UnitSchedule, error)
}

// Query asks for requestedQuantity units of an equipment type during a window.
type Query struct {
	EquipmentTypeID   uuid.UUID
	Window            booking.TimeRange
	RequestedQuantity int
	TotalInventory    int
}

// Candidates is the outcome of the candidate mode: the sweep-line result plus the chosen unit ids.
// UnitIDs is empty whenever the request cannot be admitted.
type Candidates struct {
	Result  Result
	UnitIDs []uuid.UUID
}

// Available reports whether units were resolved for the request.
func (c Candidates) Available() bool {
	return len(c.UnitIDs) > 0
}

// Engine answers availability queries for one equipment type at a time.
type Engine struct {
	source           Source
	turnaround       time.Duration
	logger           store.Logger
	contextualLogger store.ContextualLogger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithTurnaroundBuffer keeps a gap of d after every booking, the requested one included, for
// cleaning and inspection between rentals. Applied identically in both modes.
func WithTurnaroundBuffer(d time.Duration) Option {
	return func(e *Engine) error {
		if d < 0 {
			return ErrNegativeTurnaroundBuffer
		}

		e.turnaround = d

		return nil
	}
}

// WithLogger sets the logger for the Engine.
func WithLogger(logger store.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Engine.
func WithContextualLogger(logger store.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// NewEngine creates an Engine reading from source.
func NewEngine(source Source, options ...Option) (Engine, error) {
	if source == nil {
		return Engine{}, ErrNilSource
	}

	engine := Engine{source: source}

	for _, option := range options {
		if err := option(&engine); err != nil {
			return Engine{}, err
		}
	}

	return engine, nil
}

// CheckAvailability runs the sweep line for q.
func (e Engine) CheckAvailability(ctx context.Context, h store.Handle, q Query) (Result, error) {
	if err := validateRequest(q.Window, q.RequestedQuantity, q.TotalInventory); err != nil {
		return Result{}, err
	}

	claimed := e.claimed(q.Window)

	bookings, err := e.source.FindBlockingBookings(ctx, h, q.EquipmentTypeID, claimed.ExtendStart(e.turnaround))
	if err != nil {
		return Result{}, err
	}

	result, err := Check(claimed, q.RequestedQuantity, q.TotalInventory, e.buffered(bookings))
	if err != nil {
		return Result{}, err
	}

	e.logDebug(ctx, logMsgChecked,
		logAttrEquipmentTypeID, q.EquipmentTypeID.String(),
		logAttrWindow, q.Window.String(),
		logAttrRequested, q.RequestedQuantity,
		logAttrTotalInventory, q.TotalInventory,
		logAttrPeakUsage, result.PeakUsage,
		logAttrAvailable, result.IsAvailable,
	)

	return result, nil
}

// FindCandidateUnits resolves concrete unit ids for q. Units are returned only when the sweep line
// and the unit schedules both show enough capacity.
func (e Engine) FindCandidateUnits(ctx context.Context, h store.Handle, q Query) (Candidates, error) {
	result, err := e.CheckAvailability(ctx, h, q)
	if err != nil {
		return Candidates{}, err
	}

	if !result.IsAvailable {
		return Candidates{Result: result}, nil
	}

	claimed := e.claimed(q.Window)

	units, err := e.source.FindUnitSchedules(ctx, h, q.EquipmentTypeID, claimed.ExtendStart(e.turnaround))
	if err != nil {
		return Candidates{}, err
	}

	unitIDs, err := ResolveCandidates(claimed, q.RequestedQuantity, q.TotalInventory, e.bufferedUnits(units))
	if err != nil {
		return Candidates{}, err
	}

	if len(unitIDs) == 0 {
		e.logWarn(ctx, logMsgCapacityFragmented,
			logAttrEquipmentTypeID, q.EquipmentTypeID.String(),
			logAttrWindow, q.Window.String(),
			logAttrRequested, q.RequestedQuantity,
			logAttrPeakUsage, result.PeakUsage,
			logAttrFreeUnits, countFree(claimed, e.bufferedUnits(units)),
		)

		return Candidates{Result: Result{PeakUsage: result.PeakUsage, RemainingCapacity: result.RemainingCapacity}}, nil
	}

	return Candidates{Result: result, UnitIDs: unitIDs}, nil
}

// claimed is the time a new booking holds its units: the window plus the turnaround after it.
// Existing bookings are widened the same way, so a gap is kept on both sides of the request.
func (e Engine) claimed(window booking.TimeRange) booking.TimeRange {
	return window.ExtendEnd(e.turnaround)
}

func (e Engine) buffered(bookings []Booking) []Booking {
	if e.turnaround == 0 {
		return bookings
	}

	out := make([]Booking, len(bookings))
	for i, b := range bookings {
		out[i] = Booking{Window: b.Window.ExtendEnd(e.turnaround), Quantity: b.Quantity}
	}

	return out
}

func (e Engine) bufferedUnits(units []UnitSchedule) []UnitSchedule {
	if e.turnaround == 0 {
		return units
	}

	out := make([]UnitSchedule, len(units))
	for i, u := range units {
		windows := make([]booking.TimeRange, len(u.Allocations))
		for j, w := range u.Allocations {
			windows[j] = w.ExtendEnd(e.turnaround)
		}

		out[i] = UnitSchedule{UnitID: u.UnitID, Allocations: windows}
	}

	return out
}

func countFree(window booking.TimeRange, units []UnitSchedule) int {
	free := 0
	for _, u := range units {
		if u.IsFreeDuring(window) {
			free++
		}
	}

	return free
}

func (e Engine) logDebug(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

func (e Engine) logWarn(ctx context.Context, msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}

	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, msg, args...)
	}
}

// String renders a query for log lines.
func (q Query) String() string {
	return fmt.Sprintf("%d of %s during %s (total %d)", q.RequestedQuantity, q.EquipmentTypeID, q.Window, q.TotalInventory)
}

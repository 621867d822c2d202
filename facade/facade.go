package facade

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/features/command/cancelreservation"
	"github.com/Facupelli/equipment-rental/features/command/changeequipmentstatus"
	"github.com/Facupelli/equipment-rental/features/command/completereservation"
	"github.com/Facupelli/equipment-rental/features/command/confirmreservation"
	"github.com/Facupelli/equipment-rental/features/command/createreservation"
	"github.com/Facupelli/equipment-rental/features/command/registercustomer"
	"github.com/Facupelli/equipment-rental/features/command/registerequipment"
	"github.com/Facupelli/equipment-rental/features/command/startreservation"
	"github.com/Facupelli/equipment-rental/features/query/checkavailability"
	"github.com/Facupelli/equipment-rental/features/query/customerreservations"
	"github.com/Facupelli/equipment-rental/features/query/equipmentbytype"
	"github.com/Facupelli/equipment-rental/features/query/getreservation"
	"github.com/Facupelli/equipment-rental/features/query/reservationsinrange"
	"github.com/Facupelli/equipment-rental/features/query/reservationview"
	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/shell"
	"github.com/Facupelli/equipment-rental/shell/observable"
	"github.com/Facupelli/equipment-rental/store"
)

// Store is the union of what the bundled handlers persist through.
// postgresengine.Store implements it.
type Store interface {
	registercustomer.Store
	registerequipment.Store
	changeequipmentstatus.Store
	createreservation.Store
	confirmreservation.Store
	cancelreservation.Store
	startreservation.Store
	completereservation.Store
	getreservation.Store
	customerreservations.Store
	reservationsinrange.Store
	checkavailability.Store
	equipmentbytype.Store
}

// Availability answers both availability modes, usually an availability.Engine.
type Availability interface {
	createreservation.CandidateFinder
	checkavailability.Checker
}

// BookingFacade holds the wrapped handlers.
type BookingFacade struct {
	now func() time.Time

	registerCustomer      shell.CoreCommandHandler[registercustomer.Command]
	registerEquipment     shell.CoreCommandHandler[registerequipment.Command]
	changeEquipmentStatus shell.CoreCommandHandler[changeequipmentstatus.Command]
	createReservation     shell.CoreCommandHandler[createreservation.Command]
	confirmReservation    shell.CoreCommandHandler[confirmreservation.Command]
	cancelReservation     shell.CoreCommandHandler[cancelreservation.Command]
	startReservation      shell.CoreCommandHandler[startreservation.Command]
	completeReservation   shell.CoreCommandHandler[completereservation.Command]

	getReservation       shell.QueryHandler[getreservation.Query, reservationview.ReservationView]
	customerReservations shell.QueryHandler[customerreservations.Query, customerreservations.CustomerReservations]
	reservationsInRange  shell.QueryHandler[reservationsinrange.Query, reservationsinrange.ReservationsInRange]
	checkAvailability    shell.QueryHandler[checkavailability.Query, checkavailability.Availability]
	equipmentByType      shell.QueryHandler[equipmentbytype.Query, equipmentbytype.EquipmentByType]
}

type config struct {
	now              func() time.Time
	retryOptions     []shell.RetryOption
	metrics          store.MetricsCollector
	tracing          store.TracingCollector
	logger           store.Logger
	contextualLogger store.ContextualLogger
}

// Option configures a BookingFacade.
type Option func(*config)

// WithClock sets the time source stamped on every command.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithRetryOptions passes a retry configuration to every handler that retries concurrency conflicts.
func WithRetryOptions(opts ...shell.RetryOption) Option {
	return func(c *config) {
		c.retryOptions = opts
	}
}

// WithMetrics records command and query metrics.
func WithMetrics(collector store.MetricsCollector) Option {
	return func(c *config) {
		c.metrics = collector
	}
}

// WithTracing wraps every call in a span.
func WithTracing(collector store.TracingCollector) Option {
	return func(c *config) {
		c.tracing = collector
	}
}

// WithLogger sets the logger of the wrappers.
func WithLogger(logger store.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithContextualLogger sets the contextual logger of the wrappers.
func WithContextualLogger(logger store.ContextualLogger) Option {
	return func(c *config) {
		c.contextualLogger = logger
	}
}

// New builds every handler on s and wraps it.
func New(s Store, availability Availability, quotes createreservation.QuoteCalculator, opts ...Option) (*BookingFacade, error) {
	cfg := config{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &BookingFacade{now: cfg.now}

	var err error

	if f.registerCustomer, err = wrapCommand[registercustomer.Command](registercustomer.NewCommandHandler(s), cfg); err != nil {
		return nil, err
	}

	if f.registerEquipment, err = wrapCommand[registerequipment.Command](registerequipment.NewCommandHandler(s), cfg); err != nil {
		return nil, err
	}

	changeStatus := changeequipmentstatus.NewCommandHandler(s, changeequipmentstatus.WithRetryOptions(cfg.retryOptions...))
	if f.changeEquipmentStatus, err = wrapCommand[changeequipmentstatus.Command](changeStatus, cfg); err != nil {
		return nil, err
	}

	create := createreservation.NewCommandHandler(s, availability, quotes, createreservation.WithRetryOptions(cfg.retryOptions...))
	if f.createReservation, err = wrapCommand[createreservation.Command](create, cfg); err != nil {
		return nil, err
	}

	confirm := confirmreservation.NewCommandHandler(s, confirmreservation.WithRetryOptions(cfg.retryOptions...))
	if f.confirmReservation, err = wrapCommand[confirmreservation.Command](confirm, cfg); err != nil {
		return nil, err
	}

	cancel := cancelreservation.NewCommandHandler(s, cancelreservation.WithRetryOptions(cfg.retryOptions...))
	if f.cancelReservation, err = wrapCommand[cancelreservation.Command](cancel, cfg); err != nil {
		return nil, err
	}

	start := startreservation.NewCommandHandler(s, startreservation.WithRetryOptions(cfg.retryOptions...))
	if f.startReservation, err = wrapCommand[startreservation.Command](start, cfg); err != nil {
		return nil, err
	}

	complete := completereservation.NewCommandHandler(s, completereservation.WithRetryOptions(cfg.retryOptions...))
	if f.completeReservation, err = wrapCommand[completereservation.Command](complete, cfg); err != nil {
		return nil, err
	}

	f.getReservation, err = wrapQuery[getreservation.Query, reservationview.ReservationView](
		getreservation.NewQueryHandler(s), cfg)
	if err != nil {
		return nil, err
	}

	f.customerReservations, err = wrapQuery[customerreservations.Query, customerreservations.CustomerReservations](
		customerreservations.NewQueryHandler(s), cfg)
	if err != nil {
		return nil, err
	}

	f.reservationsInRange, err = wrapQuery[reservationsinrange.Query, reservationsinrange.ReservationsInRange](
		reservationsinrange.NewQueryHandler(s), cfg)
	if err != nil {
		return nil, err
	}

	f.checkAvailability, err = wrapQuery[checkavailability.Query, checkavailability.Availability](
		checkavailability.NewQueryHandler(s, availability), cfg)
	if err != nil {
		return nil, err
	}

	f.equipmentByType, err = wrapQuery[equipmentbytype.Query, equipmentbytype.EquipmentByType](
		equipmentbytype.NewQueryHandler(s), cfg)
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (f *BookingFacade) RegisterCustomer(ctx context.Context, customerID uuid.UUID, name, email string) (shell.HandlerResult, error) {
	return f.registerCustomer.Handle(ctx, registercustomer.BuildCommand(customerID, name, email, f.now()))
}

func (f *BookingFacade) RegisterEquipment(
	ctx context.Context,
	itemID, equipmentTypeID uuid.UUID,
	serialNumber string,
) (shell.HandlerResult, error) {
	return f.registerEquipment.Handle(ctx, registerequipment.BuildCommand(itemID, equipmentTypeID, serialNumber, f.now()))
}

func (f *BookingFacade) ChangeEquipmentStatus(
	ctx context.Context,
	itemID uuid.UUID,
	status inventory.ItemStatus,
	reason string,
) (shell.HandlerResult, error) {
	return f.changeEquipmentStatus.Handle(ctx, changeequipmentstatus.BuildCommand(itemID, status, reason, f.now()))
}

// CreateReservation admits a single-item reservation. Repeating the call with the same reservationID
// is an idempotent no-op.
func (f *BookingFacade) CreateReservation(
	ctx context.Context,
	reservationID, customerID, equipmentTypeID uuid.UUID,
	window booking.TimeRange,
	quantity int,
	promoCode string,
) (shell.HandlerResult, error) {
	command := createreservation.BuildCommand(reservationID, customerID, equipmentTypeID, window, quantity, promoCode, f.now())

	return f.createReservation.Handle(ctx, command)
}

func (f *BookingFacade) ConfirmReservation(ctx context.Context, reservationID uuid.UUID) (shell.HandlerResult, error) {
	return f.confirmReservation.Handle(ctx, confirmreservation.BuildCommand(reservationID, f.now()))
}

func (f *BookingFacade) CancelReservation(ctx context.Context, reservationID uuid.UUID, reason string) (shell.HandlerResult, error) {
	return f.cancelReservation.Handle(ctx, cancelreservation.BuildCommand(reservationID, reason, f.now()))
}

func (f *BookingFacade) StartReservation(ctx context.Context, reservationID uuid.UUID) (shell.HandlerResult, error) {
	return f.startReservation.Handle(ctx, startreservation.BuildCommand(reservationID, f.now()))
}

func (f *BookingFacade) CompleteReservation(ctx context.Context, reservationID uuid.UUID) (shell.HandlerResult, error) {
	return f.completeReservation.Handle(ctx, completereservation.BuildCommand(reservationID, f.now()))
}

func (f *BookingFacade) GetReservation(ctx context.Context, reservationID uuid.UUID) (reservationview.ReservationView, error) {
	return f.getReservation.Handle(ctx, getreservation.BuildQuery(reservationID))
}

// CustomerReservations lists a customer's orders, newest first. A zero limit means the default page size.
func (f *BookingFacade) CustomerReservations(
	ctx context.Context,
	customerID uuid.UUID,
	statuses []booking.ReservationStatus,
	limit, offset int,
) (customerreservations.CustomerReservations, error) {
	return f.customerReservations.Handle(ctx, customerreservations.BuildQuery(customerID, statuses, limit, offset))
}

func (f *BookingFacade) ReservationsInRange(
	ctx context.Context,
	window booking.TimeRange,
	statuses []booking.ReservationStatus,
) (reservationsinrange.ReservationsInRange, error) {
	return f.reservationsInRange.Handle(ctx, reservationsinrange.BuildQuery(window, statuses))
}

func (f *BookingFacade) CheckAvailability(
	ctx context.Context,
	equipmentTypeID uuid.UUID,
	window booking.TimeRange,
	quantity int,
) (checkavailability.Availability, error) {
	return f.checkAvailability.Handle(ctx, checkavailability.BuildQuery(equipmentTypeID, window, quantity))
}

// EquipmentByType lists the units of an equipment type. No statuses means every status.
func (f *BookingFacade) EquipmentByType(
	ctx context.Context,
	equipmentTypeID uuid.UUID,
	statuses []inventory.ItemStatus,
) (equipmentbytype.EquipmentByType, error) {
	return f.equipmentByType.Handle(ctx, equipmentbytype.BuildQuery(equipmentTypeID, statuses))
}

func wrapCommand[C shell.Command](core shell.CoreCommandHandler[C], cfg config) (shell.CoreCommandHandler[C], error) {
	wrapper, err := observable.NewCommandWrapper(core,
		observable.WithCommandMetrics[C](cfg.metrics),
		observable.WithCommandTracing[C](cfg.tracing),
		observable.WithCommandLogging[C](cfg.logger),
		observable.WithCommandContextualLogging[C](cfg.contextualLogger),
	)
	if err != nil {
		return nil, err
	}

	return wrapper, nil
}

func wrapQuery[Q shell.Query, R any](core shell.QueryHandler[Q, R], cfg config) (shell.QueryHandler[Q, R], error) {
	wrapper, err := observable.NewQueryWrapper(core,
		observable.WithQueryMetrics[Q, R](cfg.metrics),
		observable.WithQueryTracing[Q, R](cfg.tracing),
		observable.WithQueryLogging[Q, R](cfg.logger),
		observable.WithQueryContextualLogging[Q, R](cfg.contextualLogger),
	)
	if err != nil {
		return nil, err
	}

	return wrapper, nil
}

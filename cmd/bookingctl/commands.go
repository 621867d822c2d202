package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/Facupelli/equipment-rental/booking"
	"github.com/Facupelli/equipment-rental/facade"
	"github.com/Facupelli/equipment-rental/inventory"
	"github.com/Facupelli/equipment-rental/shell"
)

type app struct {
	bookings *facade.BookingFacade
	migrate  func(ctx context.Context) error
	out      io.Writer
}

type subcommand struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var subcommands = []subcommand{
	{name: "register-customer", summary: "register a customer (-name, -email)", run: registerCustomer},
	{name: "register-equipment", summary: "register an equipment unit (-type, -serial)", run: registerEquipment},
	{name: "equipment-status", summary: "change the status of a unit (-item, -status, -reason)", run: equipmentStatus},
	{name: "units", summary: "list the units of an equipment type (-type, -status)", run: listUnits},
	{name: "availability", summary: "check availability (-type, -start, -end, -quantity)", run: checkAvailability},
	{name: "create", summary: "create a reservation (-customer, -type, -start, -end, -quantity, -promo)", run: createReservation},
	{name: "confirm", summary: "confirm a reservation (-id)", run: confirmReservation},
	{name: "cancel", summary: "cancel a reservation (-id, -reason)", run: cancelReservation},
	{name: "start", summary: "hand over the equipment of a reservation (-id)", run: startReservation},
	{name: "complete", summary: "take back the equipment of a reservation (-id)", run: completeReservation},
	{name: "show", summary: "show a reservation (-id)", run: showReservation},
	{name: "list", summary: "list reservations of a customer (-customer) or in a window (-start, -end)", run: listReservations},
	{name: "migrate", summary: "apply the database schema", run: migrate},
}

func lookupSubcommand(name string) (subcommand, bool) {
	for _, sub := range subcommands {
		if sub.name == name {
			return sub, true
		}
	}

	return subcommand{}, false
}

type commandOutput struct {
	ID       uuid.UUID `json:"id"`
	Outcome  string    `json:"outcome"`
	Attempts int       `json:"attempts"`
}

func (a *app) printResult(id uuid.UUID, result shell.HandlerResult) error {
	return a.print(commandOutput{ID: id, Outcome: result.BusinessOutcome(), Attempts: result.RetryAttempts})
}

func (a *app) print(v any) error {
	encoder := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(a.out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

func registerCustomer(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register-customer")
	id := uuidFlag(fs, "id", "customer id, generated when empty")
	name := fs.String("name", "", "customer name")
	email := fs.String("email", "", "customer email")

	if err := fs.Parse(args); err != nil {
		return err
	}

	customerID := id.orNew()

	result, err := a.bookings.RegisterCustomer(ctx, customerID, *name, *email)
	if err != nil {
		return err
	}

	return a.printResult(customerID, result)
}

func registerEquipment(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register-equipment")
	id := uuidFlag(fs, "id", "unit id, generated when empty")
	typeID := uuidFlag(fs, "type", "equipment type id")
	serial := fs.String("serial", "", "serial number")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := required(typeID); err != nil {
		return err
	}

	itemID := id.orNew()

	result, err := a.bookings.RegisterEquipment(ctx, itemID, typeID.id, *serial)
	if err != nil {
		return err
	}

	return a.printResult(itemID, result)
}

func equipmentStatus(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("equipment-status")
	itemID := uuidFlag(fs, "item", "unit id")
	rawStatus := fs.String("status", "", "target status: Available, Maintenance, Lost or Retired")
	reason := fs.String("reason", "", "reason, required unless the unit becomes Available")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := required(itemID); err != nil {
		return err
	}

	status, err := inventory.ParseItemStatus(*rawStatus)
	if err != nil {
		return err
	}

	result, err := a.bookings.ChangeEquipmentStatus(ctx, itemID.id, status, *reason)
	if err != nil {
		return err
	}

	return a.printResult(itemID.id, result)
}

func checkAvailability(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("availability")
	typeID := uuidFlag(fs, "type", "equipment type id")
	window := windowFlags(fs)
	quantity := fs.Int("quantity", 1, "requested units")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := required(typeID); err != nil {
		return err
	}

	w, err := window.parse()
	if err != nil {
		return err
	}

	result, err := a.bookings.CheckAvailability(ctx, typeID.id, w, *quantity)
	if err != nil {
		return err
	}

	return a.print(result)
}

func createReservation(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("create")
	id := uuidFlag(fs, "id", "reservation id, generated when empty; reuse it to retry safely")
	customerID := uuidFlag(fs, "customer", "customer id")
	typeID := uuidFlag(fs, "type", "equipment type id")
	window := windowFlags(fs)
	quantity := fs.Int("quantity", 1, "requested units")
	promo := fs.String("promo", "", "promo code")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := required(customerID, typeID); err != nil {
		return err
	}

	w, err := window.parse()
	if err != nil {
		return err
	}

	reservationID := id.orNew()

	result, err := a.bookings.CreateReservation(ctx, reservationID, customerID.id, typeID.id, w, *quantity, *promo)
	if err != nil {
		return err
	}

	return a.printResult(reservationID, result)
}

func confirmReservation(ctx context.Context, a *app, args []string) error {
	return transition(ctx, a, "confirm", args, a.bookings.ConfirmReservation)
}

func startReservation(ctx context.Context, a *app, args []string) error {
	return transition(ctx, a, "start", args, a.bookings.StartReservation)
}

func completeReservation(ctx context.Context, a *app, args []string) error {
	return transition(ctx, a, "complete", args, a.bookings.CompleteReservation)
}

func cancelReservation(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("cancel")
	id := uuidFlag(fs, "id", "reservation id")
	reason := fs.String("reason", "", "cancellation reason")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := required(id); err != nil {
		return err
	}

	result, err := a.bookings.CancelReservation(ctx, id.id, *reason)
	if err != nil {
		return err
	}

	return a.printResult(id.id, result)
}

func transition(
	ctx context.Context,
	a *app,
	name string,
	args []string,
	apply func(context.Context, uuid.UUID) (shell.HandlerResult, error),
) error {
	fs := newFlagSet(name)
	id := uuidFlag(fs, "id", "reservation id")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := required(id); err != nil {
		return err
	}

	result, err := apply(ctx, id.id)
	if err != nil {
		return err
	}

	return a.printResult(id.id, result)
}

func listUnits(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("units")
	typeID := uuidFlag(fs, "type", "equipment type id")
	rawStatuses := fs.String("status", "", "comma separated unit status filter")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := required(typeID); err != nil {
		return err
	}

	statuses, err := parseItemStatuses(*rawStatuses)
	if err != nil {
		return err
	}

	result, err := a.bookings.EquipmentByType(ctx, typeID.id, statuses)
	if err != nil {
		return err
	}

	return a.print(result)
}

func showReservation(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("show")
	id := uuidFlag(fs, "id", "reservation id")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := required(id); err != nil {
		return err
	}

	view, err := a.bookings.GetReservation(ctx, id.id)
	if err != nil {
		return err
	}

	return a.print(view)
}

func listReservations(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("list")
	customerID := uuidFlag(fs, "customer", "list the reservations of this customer")
	window := windowFlags(fs)
	rawStatuses := fs.String("status", "", "comma separated status filter")
	limit := fs.Int("limit", 0, "page size for customer listings")
	offset := fs.Int("offset", 0, "offset for customer listings")

	if err := fs.Parse(args); err != nil {
		return err
	}

	statuses, err := parseStatuses(*rawStatuses)
	if err != nil {
		return err
	}

	if customerID.set {
		result, err := a.bookings.CustomerReservations(ctx, customerID.id, statuses, *limit, *offset)
		if err != nil {
			return err
		}

		return a.print(result)
	}

	w, err := window.parse()
	if err != nil {
		return errors.Join(errUsage, errors.New("list needs -customer or -start and -end"), err)
	}

	result, err := a.bookings.ReservationsInRange(ctx, w, statuses)
	if err != nil {
		return err
	}

	return a.print(result)
}

func migrate(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("migrate").Parse(args); err != nil {
		return err
	}

	if err := a.migrate(ctx); err != nil {
		return err
	}

	return a.print(map[string]string{"schema": "up to date"})
}

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

// idValue is a flag.Value for UUIDs that remembers whether it was set.
type idValue struct {
	name string
	id   uuid.UUID
	set  bool
}

func uuidFlag(fs *flag.FlagSet, name, usage string) *idValue {
	v := &idValue{name: name}
	fs.Var(v, name, usage)

	return v
}

func (v *idValue) String() string {
	if v == nil || !v.set {
		return ""
	}

	return v.id.String()
}

func (v *idValue) Set(raw string) error {
	id, err := uuid.Parse(raw)
	if err != nil {
		return err
	}

	v.id, v.set = id, true

	return nil
}

func (v *idValue) orNew() uuid.UUID {
	if !v.set {
		v.id, v.set = uuid.New(), true
	}

	return v.id
}

func required(values ...*idValue) error {
	for _, v := range values {
		if !v.set {
			return errors.Join(errUsage, fmt.Errorf("-%s is required", v.name))
		}
	}

	return nil
}

type windowValue struct {
	start string
	end   string
}

func windowFlags(fs *flag.FlagSet) *windowValue {
	w := &windowValue{}
	fs.StringVar(&w.start, "start", "", "window start, RFC 3339")
	fs.StringVar(&w.end, "end", "", "window end, RFC 3339")

	return w
}

func (w *windowValue) parse() (booking.TimeRange, error) {
	if w.start == "" || w.end == "" {
		return booking.TimeRange{}, errors.Join(errUsage, errors.New("-start and -end are required"))
	}

	start, err := time.Parse(time.RFC3339, w.start)
	if err != nil {
		return booking.TimeRange{}, fmt.Errorf("invalid -start: %w", err)
	}

	end, err := time.Parse(time.RFC3339, w.end)
	if err != nil {
		return booking.TimeRange{}, fmt.Errorf("invalid -end: %w", err)
	}

	return booking.NewTimeRange(start, end)
}

func parseStatuses(raw string) ([]booking.ReservationStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	statuses := make([]booking.ReservationStatus, 0, len(parts))

	for _, part := range parts {
		status, err := booking.ParseReservationStatus(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}

func parseItemStatuses(raw string) ([]inventory.ItemStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	statuses := make([]inventory.ItemStatus, 0, len(parts))

	for _, part := range parts {
		status, err := inventory.ParseItemStatus(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}

package booking

import "errors"

var (
	// ErrInvalidTimeRange is returned when a window's end is not strictly after its start.
	ErrInvalidTimeRange = errors.New("time range end must be after start")

	// ErrStartInPast is returned when a requested window starts before the current instant.
	ErrStartInPast = errors.New("time range must not start in the past")

	// ErrNonPositiveQuantity is returned when a requested quantity is zero or negative.
	ErrNonPositiveQuantity = errors.New("quantity must be positive")

	// ErrNegativeInventory is returned when a total inventory count is negative.
	ErrNegativeInventory = errors.New("total inventory must not be negative")

	// ErrCustomerNotFound is returned when the customer collaborator does not know the customer.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrInsufficientCapacity is returned when a window cannot accommodate the requested quantity.
	ErrInsufficientCapacity = errors.New("insufficient capacity for the requested window")

	// ErrInvalidStateTransition is returned when a lifecycle method is called from an illegal status.
	ErrInvalidStateTransition = errors.New("invalid reservation state transition")

	// ErrReservationNotFound is returned when no reservation order exists for an identifier.
	ErrReservationNotFound = errors.New("reservation order not found")

	// ErrItemFullyAllocated is returned when allocating a unit to an item that already has all its units.
	ErrItemFullyAllocated = errors.New("reservation order item is already fully allocated")

	// ErrTooManyAllocations is returned when an item is built with more allocations than units requested.
	ErrTooManyAllocations = errors.New("allocations exceed requested quantity")

	// ErrMissingEquipmentUnit is returned when an allocation names no equipment unit.
	ErrMissingEquipmentUnit = errors.New("allocation requires an equipment unit")

	// ErrAllocationOutsideWindow is returned when an allocation does not cover its item's window.
	ErrAllocationOutsideWindow = errors.New("allocation window differs from item window")

	// ErrCurrencyMismatch is returned when money values with different currencies are combined.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrMissingIdentifier is returned when a required identifier is the nil UUID.
	ErrMissingIdentifier = errors.New("identifier must not be empty")
)

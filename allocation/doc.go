// Package allocation binds physical equipment units to confirmed reservations.
//
// Handler consumes ReservationConfirmed: inside one transaction it skips reservations that already
// have bound units, selects Available units of the type in FIFO order, and marks them Allocated with
// version-conditioned updates. A lost race aborts the whole transaction and is retried with backoff.
// When too few units exist nothing is bound and ErrInsufficientInventory is returned, which leaves the
// outbox event unpublished for redelivery. No compensating cancellation is performed.
//
// LifecycleHandler moves bound units to InUse when a reservation starts and back to Available when it
// completes or is cancelled.
package allocation

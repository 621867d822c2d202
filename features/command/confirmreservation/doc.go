// Package confirmreservation implements the Confirm Reservation use case.
//
// Confirming moves a Pending order with at least one line item to Confirmed and stages one
// ReservationConfirmed event per line item in the same transaction. The allocation handler consumes
// those events to bind physical units. Confirming an order in any other status fails with
// booking.ErrInvalidStateTransition.
package confirmreservation

// Package cancelreservation implements the Cancel Reservation use case.
//
// Pending and Confirmed orders can be cancelled. The ReservationCancelled event carries the prior
// status and the operator's reason; the lifecycle consumer uses it to release bound units.
package cancelreservation

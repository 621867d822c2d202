// Package createreservation implements the Create Reservation use case.
//
// A request is admitted only after the customer is known, the window does not start in the past and
// the availability engine resolved concrete units for the whole window. Each resolved unit becomes a
// planned Allocation of the order's single line item. The order and its ReservationCreated outbox
// event are written in one transaction while an advisory lock on the equipment type is held, so two
// admissions for the same type cannot both pass on the same free capacity.
//
// Re-sending a command with a reservation id that already exists is an idempotent no-op.
package createreservation

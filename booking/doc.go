// Package booking holds the reservation domain: time windows, the ReservationOrder aggregate with its
// line items and unit allocations, opaque price quotes, and the payloads of the domain events staged in
// the outbox whenever an order changes state.
//
// Aggregates are immutable values. Every state transition returns a new snapshot or a typed error,
// so a caller that fails halfway never holds a half-mutated order.
package booking

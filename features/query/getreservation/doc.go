// Package getreservation implements the Get Reservation query: one order with its items and
// allocations, read with eventual consistency.
package getreservation

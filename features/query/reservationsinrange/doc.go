// Package reservationsinrange implements the Reservations In Range query used for the operator's
// schedule: every order with a line item overlapping a window, oldest first. Without a status
// filter only orders that hold capacity (Pending, Confirmed, InProgress) are returned.
package reservationsinrange

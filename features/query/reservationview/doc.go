// Package reservationview holds the read model the reservation queries return.
package reservationview

// Package customerreservations implements the Customer Reservations query: a page of one customer's
// orders, newest first, optionally filtered by status.
package customerreservations

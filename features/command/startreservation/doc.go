// Package startreservation implements the Start Reservation use case: the equipment of a Confirmed
// order is handed over and the order moves to InProgress.
package startreservation

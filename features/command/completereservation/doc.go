// Package completereservation implements the Complete Reservation use case: the equipment of an
// InProgress order came back and the order moves to Completed.
package completereservation

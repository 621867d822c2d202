// Package facade bundles every booking command and query handler behind one type.
//
// BookingFacade is what a presentation layer (the bookingctl CLI today) talks to. It builds the
// commands and queries, stamps them with the clock, and routes them through the observable
// wrappers so every call is measured, traced and logged the same way.
package facade

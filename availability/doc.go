// Package availability decides whether an equipment type has capacity for a requested window.
//
// Two modes answer the same question. Check runs a sweep line over the blocking bookings that overlap
// the window and compares peak usage plus the requested quantity against total inventory.
// ResolveCandidates works on individual units and returns the ids of units with no allocation
// overlapping the window. Engine fetches both inputs through a Source and combines the modes for
// the create-reservation flow: units are only returned when both modes agree that capacity exists.
//
// Total inventory is supplied by the caller and is trusted; the engine never recounts physical units.
package availability

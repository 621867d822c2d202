// Package registerequipment implements the Register Equipment use case.
//
// A new unit enters the rentable pool as Available with version 1. Serial numbers are unique;
// registering the same item id twice with the same serial number is an idempotent no-op.
package registerequipment

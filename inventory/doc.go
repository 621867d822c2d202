// Package inventory models concrete rentable equipment units.
//
// An EquipmentItem carries the version counter read from storage. Repositories condition every update on
// that version and bump it on success, so two writers racing for the same unit cannot both win.
// Status changes are recorded as pending history entries that the repository persists with the update.
package inventory

// Package equipmentbytype implements the Equipment By Type query: the units of one equipment type,
// oldest first, optionally narrowed to some statuses.
package equipmentbytype

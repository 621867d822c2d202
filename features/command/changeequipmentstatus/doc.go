// Package changeequipmentstatus implements the operator-driven status changes of an equipment unit:
// maintenance, loss, retirement and the return to Available. Allocated and InUse are reached only
// through the reservation lifecycle and are rejected here.
//
// Maintenance, Lost and Retired need a reason. Each change is saved conditioned on the unit's
// version and recorded in the status history in the same transaction. Asking for the status the
// unit already has is an idempotent no-op.
package changeequipmentstatus

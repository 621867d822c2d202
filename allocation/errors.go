package allocation

import "errors"

// ErrInsufficientInventory is returned when a confirmed reservation finds fewer Available units than it needs.
// Nothing is bound in that case.
var ErrInsufficientInventory = errors.New("insufficient equipment inventory for confirmed reservation")

package postgresengine

import (
	"github.com/Facupelli/equipment-rental/allocation"
	"github.com/Facupelli/equipment-rental/availability"
	"github.com/Facupelli/equipment-rental/outbox"
)

var (
	_ availability.Source = Store{}
	_ allocation.Store    = Store{}
	_ outbox.Store        = Store{}
)

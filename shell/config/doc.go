// Package config builds the runtime configuration of the booking binaries.
//
// Load reads environment variables and lets command line flags override them. The remaining
// helpers turn a Config into database pools, a postgresengine.Store, OpenTelemetry providers
// and a logger for the selected backend.
package config

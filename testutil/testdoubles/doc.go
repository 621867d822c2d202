// Package testdoubles provides spies for the store observability interfaces and an in-memory
// booking store for handler tests.
package testdoubles

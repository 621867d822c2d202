// Package outbox stages domain events in the same transaction as the state change they describe
// and relays them to an in-process Bus at least once.
//
// Events are never deleted. A published event has PublishedAt set; an unpublished one is picked up
// again on the next relay tick, in creation order, until it is published or parked.
package outbox

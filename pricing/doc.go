// Package pricing calculates quotes for reservation line items from per-type rate cards.
//
// A Calculator holds the rate cards and discount rules. Discount rules are LOYALTY, PROMO,
// VOLUME or SEASONAL; stackable rules add up on the undiscounted subtotal, a non-stackable
// rule among the eligible ones makes only the single best rule apply.
package pricing

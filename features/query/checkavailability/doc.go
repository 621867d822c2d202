// Package checkavailability implements the Check Availability query.
//
// It answers whether a quantity of an equipment type is free for a window without reserving
// anything. Total inventory is the number of rentable units at the time of the query, the sweep line
// does the rest. The answer is advisory: admission re-checks under the equipment type lock.
package checkavailability

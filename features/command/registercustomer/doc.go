// Package registercustomer implements the Register Customer use case backing the customer
// collaborator's exists check. Emails are unique, compared case-insensitively.
package registercustomer

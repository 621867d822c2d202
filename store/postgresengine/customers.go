package postgresengine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/Facupelli/equipment-rental/store"
)

const (
	actionCustomerExists   = "customer_exists"
	actionRegisterCustomer = "register_customer"
)

// ErrInvalidCustomer is returned when a customer is registered without a name or email.
var ErrInvalidCustomer = errors.New("customer name and email are required")

// CustomerExists reports whether a customer with the id is registered.
func (s Store) CustomerExists(ctx context.Context, h store.Handle, customerID uuid.UUID) (exists bool, err error) {
	observer, ctx := s.observe(ctx, actionCustomerExists)
	defer func() { observer.finish(err) }()

	stmt := dialect.From(tableCustomers).Prepared(true).
		Select(goqu.L("1")).
		Where(goqu.C("id").Eq(customerID.String())).
		Limit(1)

	rows, err := s.query(ctx, h, actionCustomerExists, stmt)
	if err != nil {
		return false, err
	}
	defer s.closeRows(ctx, rows)

	exists = rows.Next()
	if err = s.rowsError(rows); err != nil {
		return false, err
	}

	return exists, nil
}

// RegisterCustomer inserts a customer. A taken email fails with store.ErrDuplicateKey.
func (s Store) RegisterCustomer(
	ctx context.Context,
	h store.Handle,
	customerID uuid.UUID,
	name, email string,
	at time.Time,
) (err error) {
	observer, ctx := s.observe(ctx, actionRegisterCustomer)
	defer func() { observer.finish(err) }()

	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if customerID == uuid.Nil || name == "" || email == "" {
		return errors.Join(ErrInvalidCustomer, fmt.Errorf("id %s, name %q, email %q", customerID, name, email))
	}

	stmt := dialect.Insert(tableCustomers).Prepared(true).Rows(goqu.Record{
		"id":         customerID.String(),
		"name":       name,
		"email":      strings.ToLower(email),
		"created_at": at.UTC(),
	})

	affected, err := s.exec(ctx, h, actionRegisterCustomer, stmt)
	if err != nil {
		return err
	}

	observer.addRows(int(affected))
	s.logOperation(ctx, actionRegisterCustomer, logAttrID, customerID.String())

	return nil
}

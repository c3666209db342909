package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/prepjourney/prepjourney-backend/pkg/config"
)

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected error when DSN is empty")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := errors.New(`ERROR: duplicate key value violates unique constraint "ux_variant_assignments_user_experiment"`)
	if !IsUniqueViolation(err, "") {
		t.Fatal("expected generic duplicate key detection")
	}
	if !IsUniqueViolation(err, "ux_variant_assignments_user_experiment") {
		t.Fatal("expected named constraint detection")
	}
	if IsUniqueViolation(err, "some_other_constraint") {
		t.Fatal("unexpected match for unrelated constraint")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatal("nil error should not match")
	}
}

func TestIsUniqueViolationTypedDriverErrors(t *testing.T) {
	pgxErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_purchase_records_square_payment"}
	if !IsUniqueViolation(pgxErr, "") {
		t.Fatal("pgconn 23505 should match without a constraint filter")
	}
	if !IsUniqueViolation(fmt.Errorf("creating record: %w", pgxErr), "ux_purchase_records_square_payment") {
		t.Fatal("wrapped pgconn error should match its constraint")
	}
	if IsUniqueViolation(pgxErr, "ux_variant_assignments_user_experiment") {
		t.Fatal("pgconn error matched the wrong constraint")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("foreign key violation must not register as unique")
	}

	pqErr := &pq.Error{Code: "23505", Constraint: "ux_variant_assignments_user_experiment"}
	if !IsUniqueViolation(pqErr, "ux_variant_assignments_user_experiment") {
		t.Fatal("pq 23505 should match its constraint")
	}
	if IsUniqueViolation(&pq.Error{Code: "40001"}, "") {
		t.Fatal("serialization failure must not register as unique")
	}
}

package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

var (
	// ErrNotFound is returned when a lookup or targeted update matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrOutOfRange is returned when an amount does not fit the int64 minor-unit columns.
	ErrOutOfRange = errors.New("amount out of range")
)

//go:embed schema_postgres.sql
var schemaPostgres string

//go:embed schema_sqlite.sql
var schemaSQLite string

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Repository provides database operations
type Repository struct {
	db     *sql.DB
	q      querier
	driver string
}

// NewRepository initializes a new repository for the given driver
func NewRepository(db *sql.DB, driver string) *Repository {
	return &Repository{db: db, q: db, driver: driver}
}

// InitSchema creates the tables if they do not exist yet
func (r *Repository) InitSchema(ctx context.Context) error {
	schema := schemaPostgres
	if r.driver == DriverSQLite {
		schema = schemaSQLite
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction. The repository passed to fn issues every
// query through that transaction. Nested calls reuse the outer transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Repository{db: r.db, q: tx, driver: r.driver}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// lockSuffix returns the row-lock clause for a single-table select on the given alias.
// SQLite serialises writers through BEGIN IMMEDIATE instead.
func (r *Repository) lockSuffix(alias string) string {
	if r.driver == DriverPostgres {
		return " FOR UPDATE OF " + alias
	}
	return ""
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// toMinor converts an amount to minor units, rounding half away from zero
func toMinor(d decimal.Decimal) (int64, error) {
	return minorUnits(d.Shift(2).Round(0))
}

// minorUnits returns an integral minor-unit value as int64, failing instead of wrapping
func minorUnits(minor decimal.Decimal) (int64, error) {
	v := minor.BigInt()
	if !v.IsInt64() {
		return 0, fmt.Errorf("%s minor units: %w", minor.String(), ErrOutOfRange)
	}
	return v.Int64(), nil
}

func fromMinor(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

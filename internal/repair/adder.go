// Package repair executes the side-effecting half of reconciliation: adding
// missing columns and converting mismatched column types. All identifiers in
// generated SQL pass through db.QuoteIdent; type specs are allow-listed.
package repair

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/schemamend/schemamend/internal/catalog"
	"github.com/schemamend/schemamend/internal/db"
	"github.com/schemamend/schemamend/internal/diff"
)

// ColumnError tags a failure with the column it belongs to.
type ColumnError struct {
	Column string
	Err    error
}

func (e ColumnError) Error() string {
	return fmt.Sprintf("column %q: %v", e.Column, e.Err)
}

func (e ColumnError) Unwrap() error { return e.Err }

// AddOutcome reports what AddMissingColumns did, column by column.
type AddOutcome struct {
	Added   []string
	Skipped []string // already present under a different case
	Failed  []ColumnError
}

// Adder executes idempotent ADD COLUMN operations.
type Adder struct {
	conn   db.Conn
	logger *slog.Logger
}

// NewAdder creates a column adder.
func NewAdder(conn db.Conn, logger *slog.Logger) *Adder {
	return &Adder{conn: conn, logger: logger}
}

// AddMissingColumns adds each missing column to table. A failure on one
// column does not block the others; the returned error aggregates all
// per-column failures and is nil only when every column was added or
// skipped. Columns that turn out to exist under a different case, or that
// raced with a concurrent add, are treated as success.
func (a *Adder) AddMissingColumns(ctx context.Context, table string, missing []diff.MissingColumn, actual []catalog.Column) (AddOutcome, error) {
	var out AddOutcome
	lookup := catalog.Lookup(actual)

	for _, col := range missing {
		if err := ctx.Err(); err != nil {
			out.Failed = append(out.Failed, ColumnError{Column: col.Name, Err: err})
			break
		}

		// Defensive re-check: the column may exist under a different case.
		if existing, ok := lookup[strings.ToLower(col.Name)]; ok {
			a.logger.Info("column already exists with different case",
				"table", table, "expected", col.Name, "actual", existing.Name)
			out.Skipped = append(out.Skipped, col.Name)
			continue
		}

		if !db.ValidTypeSpec(col.Type) {
			out.Failed = append(out.Failed, ColumnError{
				Column: col.Name,
				Err:    fmt.Errorf("invalid type spec %q", col.Type),
			})
			continue
		}

		added, err := a.addColumn(ctx, table, col)
		if err != nil {
			a.logger.Error("adding column failed", "table", table, "column", col.Name, "error", err)
			out.Failed = append(out.Failed, ColumnError{Column: col.Name, Err: err})
			continue
		}
		if added {
			a.logger.Info("added column", "table", table, "column", col.Name, "type", col.Type)
			out.Added = append(out.Added, col.Name)
		} else {
			a.logger.Info("column already exists", "table", table, "column", col.Name)
			out.Skipped = append(out.Skipped, col.Name)
		}
	}

	if len(out.Failed) == 0 {
		return out, nil
	}
	errs := make([]error, 0, len(out.Failed))
	for _, fe := range out.Failed {
		errs = append(errs, fmt.Errorf("table %q: %w", table, error(fe)))
	}
	return out, errors.Join(errs...)
}

// addColumn tries the idempotent IF NOT EXISTS form first; engines that
// reject the syntax get a plain ADD COLUMN, where an "already exists" error
// means another caller won the race and is not a failure.
func (a *Adder) addColumn(ctx context.Context, table string, col diff.MissingColumn) (added bool, err error) {
	ifNotExists := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
		db.QuoteIdent(table), db.QuoteIdent(col.Name), col.Type)

	_, err = a.conn.Exec(ctx, ifNotExists)
	if err == nil {
		return true, nil
	}
	if !isSyntaxError(err) {
		return false, err
	}

	plain := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s",
		db.QuoteIdent(table), db.QuoteIdent(col.Name), col.Type)

	_, err = a.conn.Exec(ctx, plain)
	if err == nil {
		return true, nil
	}
	if isAlreadyExists(err) {
		return false, nil
	}
	return false, err
}

func isSyntaxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42601" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "syntax error")
}

func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42701" { // duplicate_column
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

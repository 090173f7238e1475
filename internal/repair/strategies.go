package repair

import (
	"context"
	"fmt"
	"strings"

	"github.com/schemamend/schemamend/internal/db"
)

// Validation patterns for in-database predicates (PostgreSQL POSIX regex,
// matched with ~ against the full string). A value failing its pattern
// becomes NULL rather than aborting the conversion.
const (
	isoDateRegex   = `^\d{4}-\d{2}-\d{2}$`
	slashDateRegex = `^\d{2}/\d{2}/\d{4}$`
	dashDateRegex  = `^\d{2}-\d{2}-\d{4}$`
	integerRegex   = `^[0-9]+$`
	decimalRegex   = `^[0-9]+(\.[0-9]+)?$`
	currencyRegex  = `^\$[0-9]+(\.[0-9]+)?$`
)

// sqlLiteral quotes a string constant for inline use in DDL, where bind
// parameters are not accepted. Only the compile-time regex constants above
// ever pass through here.
func sqlLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// dateNormalizeStmts rewrites the recognized non-ISO date formats to ISO in
// place, so the ISO-only clean that follows converts them instead of nulling
// them out.
func dateNormalizeStmts(table, column string) []string {
	tbl := db.QuoteIdent(table)
	col := db.QuoteIdent(column)
	return []string{
		fmt.Sprintf(
			"UPDATE %s SET %s = to_char(to_date(%s, 'MM/DD/YYYY'), 'YYYY-MM-DD') WHERE %s ~ %s",
			tbl, col, col, col, sqlLiteral(slashDateRegex)),
		fmt.Sprintf(
			"UPDATE %s SET %s = to_char(to_date(%s, 'MM-DD-YYYY'), 'YYYY-MM-DD') WHERE %s ~ %s",
			tbl, col, col, col, sqlLiteral(dashDateRegex)),
	}
}

// directCast runs the validated in-place conversion: optional normalization
// of alternate source formats, pre-clean of values that fail the pattern,
// then ALTER COLUMN TYPE with a guarded USING expression. All statements
// share one transaction.
func (c *Converter) directCast(ctx context.Context, table, column, targetType, pattern string, normalize []string) error {
	tbl := db.QuoteIdent(table)
	col := db.QuoteIdent(column)
	pat := sqlLiteral(pattern)

	clean := fmt.Sprintf(
		"UPDATE %s SET %s = NULL WHERE %s IS NOT NULL AND %s !~ %s",
		tbl, col, col, col, pat)

	alter := fmt.Sprintf(
		"ALTER TABLE %s ALTER COLUMN %s TYPE %s USING CASE WHEN %s ~ %s THEN %s::%s ELSE NULL END",
		tbl, col, targetType, col, pat, col, targetType)

	return c.conn.InTx(ctx, func(tx db.Execer) error {
		for _, stmt := range normalize {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("normalizing values: %w", err)
			}
		}
		if _, err := tx.Exec(ctx, clean); err != nil {
			return fmt.Errorf("cleaning invalid values: %w", err)
		}
		if _, err := tx.Exec(ctx, alter); err != nil {
			return fmt.Errorf("altering column type: %w", err)
		}
		return nil
	})
}

// copyExprFunc builds the validated SELECT expression that populates the
// shadow column from the quoted source column.
type copyExprFunc func(col string) string

func dateCopyExpr(col string) string {
	return fmt.Sprintf(
		"CASE WHEN %s ~ %s THEN %s::DATE"+
			" WHEN %s ~ %s THEN to_date(%s, 'MM/DD/YYYY')"+
			" WHEN %s ~ %s THEN to_date(%s, 'MM-DD-YYYY')"+
			" ELSE NULL END",
		col, sqlLiteral(isoDateRegex), col,
		col, sqlLiteral(slashDateRegex), col,
		col, sqlLiteral(dashDateRegex), col)
}

func numericCopyExpr(col string) string {
	return fmt.Sprintf(
		"CASE WHEN %s ~ %s THEN %s::NUMERIC"+
			" WHEN %s ~ %s THEN replace(%s, '$', '')::NUMERIC"+
			" ELSE NULL END",
		col, sqlLiteral(decimalRegex), col,
		col, sqlLiteral(currencyRegex), col)
}

func integerCopyExpr(col string) string {
	return fmt.Sprintf(
		"CASE WHEN %s ~ %s THEN %s::INTEGER ELSE NULL END",
		col, sqlLiteral(integerRegex), col)
}

// shadowSwap converts via a shadow column inside one transaction: add the
// shadow with the target type, copy validated data into it, drop the
// original, rename the shadow to the original name. Any step failing rolls
// the whole transaction back, leaving the table untouched.
func (c *Converter) shadowSwap(ctx context.Context, table, column, targetType string, expr copyExprFunc) error {
	tbl := db.QuoteIdent(table)
	col := db.QuoteIdent(column)
	shadow := db.QuoteIdent(column + "_shadow")

	steps := []struct {
		name string
		sql  string
	}{
		{"adding shadow column", fmt.Sprintf(
			"ALTER TABLE %s ADD COLUMN %s %s", tbl, shadow, targetType)},
		{"copying validated data", fmt.Sprintf(
			"UPDATE %s SET %s = %s", tbl, shadow, expr(col))},
		{"dropping original column", fmt.Sprintf(
			"ALTER TABLE %s DROP COLUMN %s", tbl, col)},
		{"renaming shadow column", fmt.Sprintf(
			"ALTER TABLE %s RENAME COLUMN %s TO %s", tbl, shadow, col)},
	}

	return c.conn.InTx(ctx, func(tx db.Execer) error {
		for _, step := range steps {
			if _, err := tx.Exec(ctx, step.sql); err != nil {
				return fmt.Errorf("%s: %w", step.name, err)
			}
		}
		return nil
	})
}

package repair

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/schemamend/schemamend/internal/db"
	"github.com/schemamend/schemamend/internal/ledger"
	"github.com/schemamend/schemamend/internal/typecompat"
)

// Conversion methods recorded in the ledger.
const (
	MethodDirect = "direct"
	MethodShadow = "shadow-column"
)

// Converter fixes column type mismatches. Every conversion runs as a single
// atomic unit: either the column ends up with the target type and validated
// data, or the table is left exactly as it was.
type Converter struct {
	conn   db.Conn
	logger *slog.Logger
	ledger *ledger.Ledger
}

// NewConverter creates a type converter recording into led.
func NewConverter(conn db.Conn, led *ledger.Ledger, logger *slog.Logger) *Converter {
	return &Converter{conn: conn, ledger: led, logger: logger}
}

// ConvertColumnType converts table.column from fromType to the declared
// toType (a full type spec such as "DECIMAL(10,2)"), choosing a validated
// strategy by type pair. Invalid source values become NULL; they never abort
// the conversion. The returned method is what actually ran.
func (c *Converter) ConvertColumnType(ctx context.Context, table, column, fromType, toType string) (string, error) {
	from := typecompat.Canonical(fromType)
	to := typecompat.Canonical(typecompat.BaseType(toType))

	c.logger.Info("converting column type",
		"table", table, "column", column, "from", from, "to", to)

	var (
		method string
		err    error
	)

	switch {
	case typecompat.Textual(from) && to == "date":
		method, err = c.textToDate(ctx, table, column)
	case typecompat.Textual(from) && to == "decimal":
		method, err = c.textToNumeric(ctx, table, column, toType)
	case typecompat.Textual(from) && to == "int4":
		method, err = c.textToInteger(ctx, table, column)
	default:
		method, err = c.genericCast(ctx, table, column, toType)
	}

	if err != nil {
		return "", fmt.Errorf("converting %s.%s from %s to %s: %w", table, column, from, to, err)
	}

	c.ledger.Append(ledger.Record{
		Table:    table,
		Column:   column,
		FromType: from,
		ToType:   to,
		Method:   method,
	})
	c.logger.Info("converted column type",
		"table", table, "column", column, "to", to, "method", method)
	return method, nil
}

// textToDate tries the direct validated cast first, normalizing MM/DD/YYYY
// and MM-DD-YYYY values to ISO beforehand so only genuinely invalid values
// are nulled, and falls back to the shadow-column strategy.
func (c *Converter) textToDate(ctx context.Context, table, column string) (string, error) {
	if err := c.directCast(ctx, table, column, "DATE", isoDateRegex, dateNormalizeStmts(table, column)); err != nil {
		c.logger.Warn("direct date cast failed, using shadow column",
			"table", table, "column", column, "error", err)
		if err := c.shadowSwap(ctx, table, column, "DATE", dateCopyExpr); err != nil {
			return "", err
		}
		return MethodShadow, nil
	}
	return MethodDirect, nil
}

// textToNumeric always uses the shadow-column strategy so currency-prefixed
// values can be stripped during the copy. The shadow column takes the
// declared precision.
func (c *Converter) textToNumeric(ctx context.Context, table, column, targetSpec string) (string, error) {
	if err := c.shadowSwap(ctx, table, column, numericShadowType(targetSpec), numericCopyExpr); err != nil {
		return "", err
	}
	return MethodShadow, nil
}

// numericShadowType prefers the declared precision; a bare type name falls
// back to a spread wide enough for currency amounts.
func numericShadowType(spec string) string {
	s := strings.ToUpper(strings.TrimSpace(spec))
	if strings.Contains(s, "(") && db.ValidTypeSpec(s) {
		return s
	}
	return "NUMERIC(12,2)"
}

func (c *Converter) textToInteger(ctx context.Context, table, column string) (string, error) {
	if err := c.directCast(ctx, table, column, "INTEGER", integerRegex, nil); err != nil {
		c.logger.Warn("direct integer cast failed, using shadow column",
			"table", table, "column", column, "error", err)
		if err := c.shadowSwap(ctx, table, column, "INTEGER", integerCopyExpr); err != nil {
			return "", err
		}
		return MethodShadow, nil
	}
	return MethodDirect, nil
}

// genericCast converts with a bare USING cast and no validation, keeping the
// declared spec's parameters. A bad row aborts the statement, which makes
// the attempt atomic by construction.
func (c *Converter) genericCast(ctx context.Context, table, column, toSpec string) (string, error) {
	targetType := strings.ToUpper(strings.TrimSpace(toSpec))
	if !db.ValidTypeSpec(targetType) {
		targetType = strings.ToUpper(typecompat.BaseType(toSpec))
		if !db.ValidTypeSpec(targetType) {
			return "", fmt.Errorf("invalid target type %q", toSpec)
		}
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
		db.QuoteIdent(table), db.QuoteIdent(column), targetType,
		db.QuoteIdent(column), targetType)

	if _, err := c.conn.Exec(ctx, stmt); err != nil {
		return "", err
	}
	return MethodDirect, nil
}

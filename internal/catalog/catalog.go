package catalog

import "context"

// Column is one column of a live table, exactly as the database catalog
// reports it. Name keeps its original case.
type Column struct {
	Name      string
	DataType  string // information_schema data_type, e.g. "character varying"
	UDTName   string // underlying/native type name, e.g. "varchar"
	MaxLength *int
}

// Reader introspects the live database. Results are produced fresh on every
// call; the live catalog is the source of truth and is never cached here.
type Reader interface {
	// Columns returns the columns of table in ordinal position order.
	// Table matching is case-insensitive.
	Columns(ctx context.Context, table string) ([]Column, error)

	// TableExists reports whether table exists (case-insensitive).
	TableExists(ctx context.Context, table string) (bool, error)

	// Tables lists all user tables in the configured schema.
	Tables(ctx context.Context) ([]string, error)
}

package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/schemamend/schemamend/internal/db"
)

// Postgres implements Reader against information_schema over a pgx connection.
type Postgres struct {
	conn   db.Conn
	schema string // pg schema to introspect, defaults to "public"
}

// NewPostgres creates a PostgreSQL catalog reader.
func NewPostgres(conn db.Conn, schemaName string) *Postgres {
	if schemaName == "" {
		schemaName = "public"
	}
	return &Postgres{conn: conn, schema: schemaName}
}

func (p *Postgres) Columns(ctx context.Context, table string) ([]Column, error) {
	query := `
		SELECT
			column_name,
			data_type,
			udt_name,
			character_maximum_length
		FROM information_schema.columns
		WHERE table_schema = $1
		  AND lower(table_name) = lower($2)
		ORDER BY ordinal_position`

	rows, err := p.conn.Query(ctx, query, p.schema, table)
	if err != nil {
		return nil, fmt.Errorf("reading columns for table %q: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Name, &c.DataType, &c.UDTName, &c.MaxLength); err != nil {
			return nil, fmt.Errorf("scanning column of table %q: %w", table, err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading columns for table %q: %w", table, err)
	}
	return cols, nil
}

func (p *Postgres) TableExists(ctx context.Context, table string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM information_schema.tables
			WHERE table_schema = $1
			  AND lower(table_name) = lower($2)
			  AND table_type = 'BASE TABLE'
		)`

	rows, err := p.conn.Query(ctx, query, p.schema, table)
	if err != nil {
		return false, fmt.Errorf("checking table %q: %w", table, err)
	}
	defer rows.Close()

	var exists bool
	if rows.Next() {
		if err := rows.Scan(&exists); err != nil {
			return false, fmt.Errorf("checking table %q: %w", table, err)
		}
	}
	return exists, rows.Err()
}

func (p *Postgres) Tables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name`

	rows, err := p.conn.Query(ctx, query, p.schema)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("listing tables: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Lookup builds a case-insensitive index of columns keyed by lower-cased name.
func Lookup(cols []Column) map[string]Column {
	m := make(map[string]Column, len(cols))
	for _, c := range cols {
		m[strings.ToLower(c.Name)] = c
	}
	return m
}

// compile-time interface check
var _ Reader = (*Postgres)(nil)

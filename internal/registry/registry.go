package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/schemamend/schemamend/internal/db"
)

// ColumnSpec declares one expected column: a name and a SQL type spec such
// as "DECIMAL(10,2)".
type ColumnSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// TableSchema is the declared column set for one table. Order is preserved
// so generated DDL is deterministic.
type TableSchema struct {
	Required []ColumnSpec `yaml:"required"`
	Optional []ColumnSpec `yaml:"optional,omitempty"`
}

// AllColumns returns required then optional columns.
func (t TableSchema) AllColumns() []ColumnSpec {
	out := make([]ColumnSpec, 0, len(t.Required)+len(t.Optional))
	out = append(out, t.Required...)
	out = append(out, t.Optional...)
	return out
}

// Registry holds the expected schemas, keyed case-insensitively by table
// name. It is loaded once at startup and never mutated during a
// reconciliation pass.
type Registry struct {
	tables map[string]TableSchema
}

// Default returns the compiled-in expected schemas for the finance tables.
func Default() *Registry {
	r := &Registry{tables: make(map[string]TableSchema)}

	r.Add("invoices", TableSchema{
		Required: []ColumnSpec{
			{Name: "invoice_number", Type: "VARCHAR(50)"},
			{Name: "vendor_name", Type: "VARCHAR(100)"},
			{Name: "invoice_date", Type: "DATE"},
			{Name: "due_date", Type: "DATE"},
			{Name: "amount", Type: "DECIMAL(10,2)"},
			{Name: "payment_status", Type: "VARCHAR(20)"},
			{Name: "fund_paid_by", Type: "VARCHAR(100)"},
		},
		Optional: []ColumnSpec{
			{Name: "description", Type: "TEXT"},
			{Name: "payment_date", Type: "DATE"},
			{Name: "payment_reference", Type: "VARCHAR(50)"},
			{Name: "impact", Type: "VARCHAR(100)"},
		},
	})

	r.Add("vendors", TableSchema{
		Required: []ColumnSpec{
			{Name: "name", Type: "VARCHAR(100)"},
			{Name: "contact_name", Type: "VARCHAR(100)"},
			{Name: "email", Type: "VARCHAR(100)"},
			{Name: "phone", Type: "VARCHAR(20)"},
		},
		Optional: []ColumnSpec{
			{Name: "address", Type: "TEXT"},
			{Name: "notes", Type: "TEXT"},
		},
	})

	r.Add("funds", TableSchema{
		Required: []ColumnSpec{
			{Name: "name", Type: "VARCHAR(100)"},
			{Name: "description", Type: "TEXT"},
		},
	})

	return r
}

// Add registers or replaces the expected schema for a table.
func (r *Registry) Add(table string, schema TableSchema) {
	if r.tables == nil {
		r.tables = make(map[string]TableSchema)
	}
	r.tables[strings.ToLower(table)] = schema
}

// Table returns the expected schema for a table, matched case-insensitively.
func (r *Registry) Table(name string) (TableSchema, bool) {
	s, ok := r.tables[strings.ToLower(name)]
	return s, ok
}

// TableNames returns all registered table names, sorted.
func (r *Registry) TableNames() []string {
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MergeFrom overlays another registry's tables onto this one.
func (r *Registry) MergeFrom(other *Registry) {
	for name, schema := range other.tables {
		r.Add(name, schema)
	}
}

// CreateTableSQL assembles the CREATE TABLE statement for a registered
// table: surrogate id key, required columns NOT NULL, optional columns
// nullable, and a created_at timestamp.
func (r *Registry) CreateTableSQL(table string) (string, error) {
	schema, ok := r.Table(table)
	if !ok {
		return "", fmt.Errorf("no expected schema defined for table %q", table)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(db.QuoteIdent(strings.ToLower(table)))
	b.WriteString(" (\n")
	b.WriteString("    id SERIAL PRIMARY KEY,\n")

	for _, col := range schema.Required {
		if !db.ValidTypeSpec(col.Type) {
			return "", fmt.Errorf("invalid type spec %q for column %q", col.Type, col.Name)
		}
		fmt.Fprintf(&b, "    %s %s NOT NULL,\n", db.QuoteIdent(col.Name), col.Type)
	}
	for _, col := range schema.Optional {
		if !db.ValidTypeSpec(col.Type) {
			return "", fmt.Errorf("invalid type spec %q for column %q", col.Type, col.Name)
		}
		fmt.Fprintf(&b, "    %s %s,\n", db.QuoteIdent(col.Name), col.Type)
	}

	b.WriteString("    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP\n")
	b.WriteString(")")
	return b.String(), nil
}

// LoadYAML reads expected schemas from a YAML file keyed by table name.
func LoadYAML(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}

	tables := map[string]TableSchema{}
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("parsing registry file: %w", err)
	}

	r := &Registry{tables: make(map[string]TableSchema, len(tables))}
	for name, schema := range tables {
		r.Add(name, schema)
	}
	return r, nil
}

// WriteYAML writes the registry to a YAML file.
func (r *Registry) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	data, err := yaml.Marshal(r.tables)
	if err != nil {
		return fmt.Errorf("marshaling registry: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

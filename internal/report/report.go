// Package report builds the read-only schema diagnosis report: per-table
// drift, suggested fix statements, and the conversion history of the run.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schemamend/schemamend/internal/catalog"
	"github.com/schemamend/schemamend/internal/db"
	"github.com/schemamend/schemamend/internal/diff"
	"github.com/schemamend/schemamend/internal/ledger"
	"github.com/schemamend/schemamend/internal/registry"
)

// Report is the full diagnosis across all inspected tables. Generating it
// never mutates the database.
type Report struct {
	Version     string          `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	Database    string          `json:"database,omitempty"`
	Tables      []TableReport   `json:"tables"`
	Conversions []ledger.Record `json:"conversions,omitempty"`
	Valid       bool            `json:"valid"`
}

// TableReport is the diagnosis for one table.
type TableReport struct {
	Table          string               `json:"table"`
	Exists         bool                 `json:"exists"`
	Valid          bool                 `json:"valid"`
	ActualColumns  []ColumnInfo         `json:"actual_columns,omitempty"`
	MissingColumns []diff.MissingColumn `json:"missing_columns,omitempty"`
	TypeMismatches []diff.TypeMismatch  `json:"type_mismatches,omitempty"`
	CaseMismatches []CaseMismatch       `json:"case_mismatches,omitempty"`
	FixStatements  []string             `json:"fix_statements,omitempty"`
}

// ColumnInfo is a live column as stored in the catalog.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CaseMismatch is a column present under a different case than declared.
// It is informational; matching is case-insensitive throughout.
type CaseMismatch struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// Generate diagnoses every given table (all registry tables when nil)
// against its expected schema. It only reads.
func Generate(ctx context.Context, reader catalog.Reader, reg *registry.Registry, database string, tables []string) (*Report, error) {
	if tables == nil {
		tables = reg.TableNames()
	}

	r := &Report{
		Version:     "1",
		GeneratedAt: time.Now().UTC(),
		Database:    database,
		Valid:       true,
	}

	for _, table := range tables {
		tr, err := diagnoseTable(ctx, reader, reg, table)
		if err != nil {
			return nil, err
		}
		if !tr.Valid {
			r.Valid = false
		}
		r.Tables = append(r.Tables, tr)
	}
	return r, nil
}

func diagnoseTable(ctx context.Context, reader catalog.Reader, reg *registry.Registry, table string) (TableReport, error) {
	tr := TableReport{Table: table}

	schema, ok := reg.Table(table)
	if !ok {
		exists, err := reader.TableExists(ctx, table)
		if err != nil {
			return TableReport{}, fmt.Errorf("checking table %q: %w", table, err)
		}
		tr.Exists = exists
		tr.Valid = true
		return tr, nil
	}

	exists, err := reader.TableExists(ctx, table)
	if err != nil {
		return TableReport{}, fmt.Errorf("checking table %q: %w", table, err)
	}
	if !exists {
		stmt, sqlErr := reg.CreateTableSQL(table)
		if sqlErr == nil {
			tr.FixStatements = append(tr.FixStatements, stmt)
		}
		return tr, nil
	}
	tr.Exists = true

	cols, err := reader.Columns(ctx, table)
	if err != nil {
		return TableReport{}, fmt.Errorf("introspecting table %q: %w", table, err)
	}
	for _, c := range cols {
		tr.ActualColumns = append(tr.ActualColumns, ColumnInfo{Name: c.Name, Type: c.DataType})
	}

	lookup := catalog.Lookup(cols)
	for _, spec := range schema.AllColumns() {
		actual, ok := lookup[strings.ToLower(spec.Name)]
		if ok && actual.Name != spec.Name {
			tr.CaseMismatches = append(tr.CaseMismatches, CaseMismatch{
				Expected: spec.Name,
				Actual:   actual.Name,
			})
		}
	}

	d := diff.Analyze(table, cols, schema)
	tr.MissingColumns = d.MissingColumns
	tr.TypeMismatches = d.TypeMismatches
	tr.Valid = d.Clean()
	tr.FixStatements = fixStatements(table, d)
	return tr, nil
}

// fixStatements renders the repairs the engine would attempt, for operators
// who prefer to apply them by hand. Type conversions are shown as the plain
// USING form; the engine itself runs the validated strategies.
func fixStatements(table string, d diff.SchemaDiff) []string {
	var out []string
	tbl := db.QuoteIdent(table)

	for _, m := range d.MissingColumns {
		out = append(out, fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			tbl, db.QuoteIdent(m.Name), m.Type))
	}
	for _, m := range d.TypeMismatches {
		target := strings.ToUpper(m.ExpectedSpec)
		if !db.ValidTypeSpec(target) {
			target = strings.ToUpper(m.ExpectedType)
		}
		out = append(out, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
			tbl, db.QuoteIdent(m.Column), target, db.QuoteIdent(m.Column), target))
	}
	return out
}

// FixScript joins every table's fix statements into one executable script.
// It returns "" when the schema is fully valid.
func (r *Report) FixScript() string {
	var b strings.Builder
	for _, tr := range r.Tables {
		if len(tr.FixStatements) == 0 {
			continue
		}
		fmt.Fprintf(&b, "-- %s\n", tr.Table)
		for _, stmt := range tr.FixStatements {
			b.WriteString(stmt)
			b.WriteString(";\n")
		}
	}
	return b.String()
}

// FormatText renders the report for terminal output.
func (r *Report) FormatText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schema report (generated %s)\n", r.GeneratedAt.Format(time.RFC3339))
	if r.Database != "" {
		fmt.Fprintf(&b, "Database: %s\n", r.Database)
	}
	b.WriteString("\n")

	for _, tr := range r.Tables {
		switch {
		case !tr.Exists:
			fmt.Fprintf(&b, "%-20s MISSING TABLE\n", tr.Table)
		case tr.Valid:
			fmt.Fprintf(&b, "%-20s OK (%d columns)\n", tr.Table, len(tr.ActualColumns))
		default:
			fmt.Fprintf(&b, "%-20s DRIFT\n", tr.Table)
			for _, m := range tr.MissingColumns {
				fmt.Fprintf(&b, "    missing column %s %s\n", m.Name, m.Type)
			}
			for _, m := range tr.TypeMismatches {
				fmt.Fprintf(&b, "    column %s is %s, expected %s\n", m.Column, m.ActualType, m.ExpectedType)
			}
		}
		for _, cm := range tr.CaseMismatches {
			fmt.Fprintf(&b, "    note: %q stored as %q\n", cm.Expected, cm.Actual)
		}
	}

	if len(r.Conversions) > 0 {
		b.WriteString("\nConversions this run:\n")
		for _, c := range r.Conversions {
			fmt.Fprintf(&b, "    %s.%s %s -> %s (%s)\n",
				c.Table, c.Column, c.FromType, c.ToType, c.Method)
		}
	}

	if r.Valid {
		b.WriteString("\nSchema is valid.\n")
	} else {
		b.WriteString("\nSchema drift detected. Run \"schemamend fix\" or apply the fix script.\n")
	}
	return b.String()
}

// WriteJSON writes the report to a JSON file, creating parent directories.
func WriteJSON(r *Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON loads a previously written report.
func ReadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &r, nil
}

package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault_KnownTables(t *testing.T) {
	r := Default()

	names := r.TableNames()
	want := []string{"funds", "invoices", "vendors"}
	if len(names) != len(want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, names)
		}
	}

	invoices, ok := r.Table("Invoices")
	if !ok {
		t.Fatal("lookup should be case-insensitive")
	}
	if len(invoices.Required) != 7 {
		t.Errorf("expected 7 required invoice columns, got %d", len(invoices.Required))
	}
	if len(invoices.Optional) != 4 {
		t.Errorf("expected 4 optional invoice columns, got %d", len(invoices.Optional))
	}
}

func TestCreateTableSQL(t *testing.T) {
	r := Default()

	sql, err := r.CreateTableSQL("invoices")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		`CREATE TABLE "invoices"`,
		"id SERIAL PRIMARY KEY",
		`"invoice_number" VARCHAR(50) NOT NULL`,
		`"amount" DECIMAL(10,2) NOT NULL`,
		`"description" TEXT,`,
		"created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("statement missing %q:\n%s", want, sql)
		}
	}
	if strings.Contains(sql, `"description" TEXT NOT NULL`) {
		t.Error("optional column generated as NOT NULL")
	}
}

func TestCreateTableSQL_UnknownTable(t *testing.T) {
	r := Default()
	if _, err := r.CreateTableSQL("no_such_table"); err == nil {
		t.Fatal("expected error for unknown table")
	}
}

func TestCreateTableSQL_RejectsInvalidTypeSpec(t *testing.T) {
	r := Default()
	r.Add("bad", TableSchema{
		Required: []ColumnSpec{
			{Name: "x", Type: "TEXT; DROP TABLE users"},
		},
	})
	if _, err := r.CreateTableSQL("bad"); err == nil {
		t.Fatal("expected error for invalid type spec")
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schemas.yaml")

	orig := Default()
	if err := orig.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	loaded, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}

	schema, ok := loaded.Table("invoices")
	if !ok {
		t.Fatal("invoices missing after round trip")
	}
	if len(schema.Required) != 7 {
		t.Errorf("expected 7 required columns, got %d", len(schema.Required))
	}
	if schema.Required[0].Name != "invoice_number" {
		t.Errorf("column order not preserved, got %q first", schema.Required[0].Name)
	}
}

func TestLoadYAML_Overlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.yaml")

	content := `grants:
  required:
    - name: grant_number
      type: VARCHAR(50)
    - name: awarded_on
      type: DATE
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	overlay, err := LoadYAML(path)
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}

	r := Default()
	r.MergeFrom(overlay)

	if _, ok := r.Table("grants"); !ok {
		t.Error("overlay table not merged")
	}
	if _, ok := r.Table("invoices"); !ok {
		t.Error("built-in table lost during merge")
	}
}

func TestAllColumns_Order(t *testing.T) {
	s := TableSchema{
		Required: []ColumnSpec{{Name: "a", Type: "TEXT"}},
		Optional: []ColumnSpec{{Name: "b", Type: "TEXT"}},
	}
	cols := s.AllColumns()
	if len(cols) != 2 || cols[0].Name != "a" || cols[1].Name != "b" {
		t.Errorf("unexpected order: %+v", cols)
	}
}

package diff

import (
	"testing"

	"github.com/schemamend/schemamend/internal/catalog"
	"github.com/schemamend/schemamend/internal/registry"
)

func col(name, dataType string) catalog.Column {
	return catalog.Column{Name: name, DataType: dataType, UDTName: dataType}
}

func TestAnalyze_CleanTable(t *testing.T) {
	schema := registry.TableSchema{
		Required: []registry.ColumnSpec{
			{Name: "invoice_number", Type: "VARCHAR(50)"},
			{Name: "amount", Type: "DECIMAL(10,2)"},
		},
		Optional: []registry.ColumnSpec{
			{Name: "description", Type: "TEXT"},
		},
	}
	actual := []catalog.Column{
		col("invoice_number", "character varying"),
		col("amount", "numeric"),
		col("description", "text"),
	}

	d := Analyze("invoices", actual, schema)
	if !d.Clean() {
		t.Fatalf("expected clean diff, got %+v", d)
	}
}

func TestAnalyze_MissingRequiredColumn(t *testing.T) {
	schema := registry.TableSchema{
		Required: []registry.ColumnSpec{
			{Name: "invoice_number", Type: "VARCHAR(50)"},
			{Name: "fund_paid_by", Type: "VARCHAR(100)"},
		},
	}
	actual := []catalog.Column{
		col("invoice_number", "character varying"),
	}

	d := Analyze("invoices", actual, schema)
	if len(d.MissingColumns) != 1 {
		t.Fatalf("expected 1 missing column, got %d", len(d.MissingColumns))
	}
	m := d.MissingColumns[0]
	if m.Name != "fund_paid_by" || m.Type != "VARCHAR(100)" || !m.Required {
		t.Errorf("unexpected missing column: %+v", m)
	}
}

func TestAnalyze_OptionalAbsenceIsNotDrift(t *testing.T) {
	schema := registry.TableSchema{
		Required: []registry.ColumnSpec{
			{Name: "name", Type: "VARCHAR(100)"},
		},
		Optional: []registry.ColumnSpec{
			{Name: "notes", Type: "TEXT"},
		},
	}
	actual := []catalog.Column{col("name", "character varying")}

	d := Analyze("vendors", actual, schema)
	if !d.Clean() {
		t.Fatalf("optional column absence reported as drift: %+v", d)
	}
}

func TestAnalyze_CaseInsensitiveMatch(t *testing.T) {
	schema := registry.TableSchema{
		Required: []registry.ColumnSpec{
			{Name: "vendor_name", Type: "VARCHAR(100)"},
		},
	}
	actual := []catalog.Column{col("Vendor_Name", "character varying")}

	d := Analyze("invoices", actual, schema)
	if len(d.MissingColumns) != 0 {
		t.Fatalf("case variant reported missing: %+v", d.MissingColumns)
	}
}

func TestAnalyze_TypeMismatchKeepsActualCase(t *testing.T) {
	schema := registry.TableSchema{
		Required: []registry.ColumnSpec{
			{Name: "invoice_date", Type: "DATE"},
		},
	}
	actual := []catalog.Column{col("Invoice_Date", "text")}

	d := Analyze("invoices", actual, schema)
	if len(d.TypeMismatches) != 1 {
		t.Fatalf("expected 1 type mismatch, got %+v", d.TypeMismatches)
	}
	m := d.TypeMismatches[0]
	if m.Column != "Invoice_Date" {
		t.Errorf("expected actual column name Invoice_Date, got %q", m.Column)
	}
	if m.ActualType != "text" || m.ExpectedType != "date" {
		t.Errorf("unexpected mismatch types: %+v", m)
	}
}

func TestAnalyze_MismatchCarriesDeclaredSpec(t *testing.T) {
	schema := registry.TableSchema{
		Required: []registry.ColumnSpec{
			{Name: "amount", Type: "DECIMAL(10,2)"},
		},
	}
	actual := []catalog.Column{col("amount", "text")}

	d := Analyze("invoices", actual, schema)
	if len(d.TypeMismatches) != 1 {
		t.Fatalf("expected 1 type mismatch, got %+v", d.TypeMismatches)
	}
	m := d.TypeMismatches[0]
	if m.ExpectedType != "decimal" {
		t.Errorf("expected base type decimal, got %q", m.ExpectedType)
	}
	if m.ExpectedSpec != "DECIMAL(10,2)" {
		t.Errorf("declared spec must survive the diff, got %q", m.ExpectedSpec)
	}
}

func TestAnalyze_OptionalTypeMismatchIsDrift(t *testing.T) {
	schema := registry.TableSchema{
		Optional: []registry.ColumnSpec{
			{Name: "payment_date", Type: "DATE"},
		},
	}
	actual := []catalog.Column{col("payment_date", "character varying")}

	d := Analyze("invoices", actual, schema)
	if len(d.TypeMismatches) != 1 {
		t.Fatalf("expected mismatch on present optional column, got %+v", d)
	}
}

func TestAnalyze_CompatibleSynonymIsNotDrift(t *testing.T) {
	schema := registry.TableSchema{
		Required: []registry.ColumnSpec{
			{Name: "amount", Type: "DECIMAL(10,2)"},
		},
	}
	actual := []catalog.Column{col("amount", "numeric")}

	d := Analyze("invoices", actual, schema)
	if len(d.TypeMismatches) != 0 {
		t.Fatalf("synonym reported as mismatch: %+v", d.TypeMismatches)
	}
}

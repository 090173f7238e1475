package catalog

import (
	"context"
	"testing"
)

func TestLookup(t *testing.T) {
	cols := []Column{
		{Name: "Invoice_Number", DataType: "character varying"},
		{Name: "amount", DataType: "numeric"},
	}

	m := Lookup(cols)
	if len(m) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m))
	}

	got, ok := m["invoice_number"]
	if !ok {
		t.Fatal("expected lower-cased key for Invoice_Number")
	}
	if got.Name != "Invoice_Number" {
		t.Errorf("original case not preserved: %q", got.Name)
	}
	if _, ok := m["Invoice_Number"]; ok {
		t.Error("keys must be lower-cased")
	}
}

func TestMockReader_ColumnsFuncCountsPerTable(t *testing.T) {
	m := &MockReader{
		ColumnsFunc: func(table string, call int) ([]Column, error) {
			if call == 1 {
				return nil, nil
			}
			return []Column{{Name: "a"}}, nil
		},
	}
	ctx := context.Background()

	cols, err := m.Columns(ctx, "invoices")
	if err != nil || len(cols) != 0 {
		t.Fatalf("first call: cols=%v err=%v", cols, err)
	}
	cols, err = m.Columns(ctx, "Invoices")
	if err != nil || len(cols) != 1 {
		t.Fatalf("second call: cols=%v err=%v", cols, err)
	}

	// A different table starts its own counter.
	cols, err = m.Columns(ctx, "vendors")
	if err != nil || len(cols) != 0 {
		t.Fatalf("other table first call: cols=%v err=%v", cols, err)
	}

	if m.ColumnsCalls("invoices") != 2 {
		t.Errorf("expected 2 calls for invoices, got %d", m.ColumnsCalls("invoices"))
	}
}

func TestMockReader_TableExists(t *testing.T) {
	m := &MockReader{
		Existing:       []string{"Funds"},
		ColumnsByTable: map[string][]Column{"invoices": {{Name: "a"}}},
	}
	ctx := context.Background()

	for _, table := range []string{"funds", "invoices"} {
		ok, err := m.TableExists(ctx, table)
		if err != nil || !ok {
			t.Errorf("TableExists(%q) = %v, %v", table, ok, err)
		}
	}
	ok, err := m.TableExists(ctx, "grants")
	if err != nil || ok {
		t.Errorf("TableExists(grants) = %v, %v", ok, err)
	}
}

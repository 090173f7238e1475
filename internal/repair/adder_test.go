package repair

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/schemamend/schemamend/internal/catalog"
	"github.com/schemamend/schemamend/internal/db"
	"github.com/schemamend/schemamend/internal/diff"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAddMissingColumns_Adds(t *testing.T) {
	m := &db.MockConn{}
	a := NewAdder(m, testLogger())

	missing := []diff.MissingColumn{
		{Name: "fund_paid_by", Type: "VARCHAR(100)", Required: true},
		{Name: "payment_date", Type: "DATE"},
	}

	out, err := a.AddMissingColumns(context.Background(), "invoices", missing, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Added) != 2 {
		t.Fatalf("expected 2 added, got %+v", out)
	}

	stmts := m.Committed()
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	if !strings.Contains(stmts[0], `ADD COLUMN IF NOT EXISTS "fund_paid_by" VARCHAR(100)`) {
		t.Errorf("unexpected statement: %s", stmts[0])
	}
}

func TestAddMissingColumns_SkipsCaseVariant(t *testing.T) {
	m := &db.MockConn{}
	a := NewAdder(m, testLogger())

	actual := []catalog.Column{{Name: "Fund_Paid_By", DataType: "character varying"}}
	missing := []diff.MissingColumn{{Name: "fund_paid_by", Type: "VARCHAR(100)", Required: true}}

	out, err := a.AddMissingColumns(context.Background(), "invoices", missing, actual)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Skipped) != 1 || len(out.Added) != 0 {
		t.Fatalf("expected skip, got %+v", out)
	}
	if m.AttemptCount() != 0 {
		t.Errorf("expected no statements, got %d", m.AttemptCount())
	}
}

func TestAddMissingColumns_SyntaxErrorFallsBackToPlainAdd(t *testing.T) {
	m := &db.MockConn{}
	m.ScriptError("IF NOT EXISTS", errors.New(`syntax error at or near "NOT"`))
	a := NewAdder(m, testLogger())

	missing := []diff.MissingColumn{{Name: "impact", Type: "VARCHAR(100)"}}

	out, err := a.AddMissingColumns(context.Background(), "invoices", missing, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Added) != 1 {
		t.Fatalf("expected fallback add, got %+v", out)
	}

	stmts := m.Committed()
	if len(stmts) != 1 || strings.Contains(stmts[0], "IF NOT EXISTS") {
		t.Fatalf("expected plain ADD COLUMN, got %v", stmts)
	}
}

func TestAddMissingColumns_AlreadyExistsIsNotFailure(t *testing.T) {
	m := &db.MockConn{}
	m.ScriptError("IF NOT EXISTS", errors.New("syntax error"))
	m.ScriptError("ADD COLUMN", errors.New(`column "impact" of relation "invoices" already exists`))
	a := NewAdder(m, testLogger())

	missing := []diff.MissingColumn{{Name: "impact", Type: "VARCHAR(100)"}}

	out, err := a.AddMissingColumns(context.Background(), "invoices", missing, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Skipped) != 1 || len(out.Added) != 0 || len(out.Failed) != 0 {
		t.Fatalf("expected lost race treated as skip, got %+v", out)
	}
}

func TestAddMissingColumns_PartialFailure(t *testing.T) {
	m := &db.MockConn{}
	boom := errors.New("permission denied for table invoices")
	m.ScriptError(`"due_date"`, boom)
	a := NewAdder(m, testLogger())

	missing := []diff.MissingColumn{
		{Name: "invoice_date", Type: "DATE", Required: true},
		{Name: "due_date", Type: "DATE", Required: true},
	}

	out, err := a.AddMissingColumns(context.Background(), "invoices", missing, nil)
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !errors.Is(err, boom) {
		t.Errorf("aggregated error should wrap the cause, got %v", err)
	}
	if len(out.Added) != 1 || out.Added[0] != "invoice_date" {
		t.Errorf("expected invoice_date added despite sibling failure, got %+v", out)
	}
	if len(out.Failed) != 1 || out.Failed[0].Column != "due_date" {
		t.Errorf("expected due_date failed, got %+v", out.Failed)
	}
}

func TestAddMissingColumns_RejectsInvalidTypeSpec(t *testing.T) {
	m := &db.MockConn{}
	a := NewAdder(m, testLogger())

	missing := []diff.MissingColumn{{Name: "x", Type: "TEXT; DROP TABLE invoices"}}

	out, err := a.AddMissingColumns(context.Background(), "invoices", missing, nil)
	if err == nil {
		t.Fatal("expected error for invalid type spec")
	}
	if len(out.Failed) != 1 {
		t.Fatalf("expected failure recorded, got %+v", out)
	}
	if m.AttemptCount() != 0 {
		t.Errorf("invalid spec must never reach the database, got %d attempts", m.AttemptCount())
	}
}

// Package reconcile ties introspection, diffing, and repair together. It is
// the public entry point of the engine.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/schemamend/schemamend/internal/catalog"
	"github.com/schemamend/schemamend/internal/db"
	"github.com/schemamend/schemamend/internal/diff"
	"github.com/schemamend/schemamend/internal/ledger"
	"github.com/schemamend/schemamend/internal/registry"
	"github.com/schemamend/schemamend/internal/repair"
)

// Result reports the outcome of one validation pass over one table. A
// non-nil error from the validating call means introspection itself failed
// and the Result is empty; per-column repair failures land in Errors while
// the rest of the Result still describes what did succeed.
type Result struct {
	Table          string               `json:"table"`
	Valid          bool                 `json:"valid"`
	MissingColumns []diff.MissingColumn `json:"missing_columns,omitempty"`
	TypeMismatches []diff.TypeMismatch  `json:"type_mismatches,omitempty"`
	FixedColumns   []string             `json:"fixed_columns,omitempty"`
	Errors         []string             `json:"errors,omitempty"`
}

// Orchestrator runs schema reconciliation. The fixed-tables set and the
// conversion ledger are the only state shared across tables; both are
// guarded for concurrent use. A per-table lock serializes repairs of the
// same table so two callers never race on the same ALTER TABLE.
type Orchestrator struct {
	reader    catalog.Reader
	registry  *registry.Registry
	ledger    *ledger.Ledger
	logger    *slog.Logger
	adder     *repair.Adder
	converter *repair.Converter
	conn      db.Conn

	mu          sync.Mutex
	fixedTables map[string]bool
	tableLocks  map[string]*sync.Mutex
}

// New creates an orchestrator over the given connection, catalog reader,
// and expected-schema registry.
func New(conn db.Conn, reader catalog.Reader, reg *registry.Registry, logger *slog.Logger) *Orchestrator {
	led := ledger.New()
	return &Orchestrator{
		reader:      reader,
		registry:    reg,
		ledger:      led,
		logger:      logger,
		adder:       repair.NewAdder(conn, logger),
		converter:   repair.NewConverter(conn, led, logger),
		conn:        conn,
		fixedTables: make(map[string]bool),
		tableLocks:  make(map[string]*sync.Mutex),
	}
}

// Ledger exposes the conversion history for reporting.
func (o *Orchestrator) Ledger() *ledger.Ledger {
	return o.ledger
}

// ValidateTable checks that table has every required column. With autoFix,
// missing columns are added once per process lifetime for this table, and
// the table is re-diagnosed exactly once afterwards; it never loops.
func (o *Orchestrator) ValidateTable(ctx context.Context, table string, autoFix bool) (Result, error) {
	schema, ok := o.registry.Table(table)
	if !ok {
		o.logger.Debug("no expected schema defined", "table", table)
		return Result{Table: table, Valid: true}, nil
	}

	cols, err := o.reader.Columns(ctx, table)
	if err != nil {
		return Result{}, fmt.Errorf("introspecting table %q: %w", table, err)
	}
	d := diff.Analyze(table, cols, schema)

	if len(d.MissingColumns) == 0 {
		return Result{Table: table, Valid: true}, nil
	}

	if !autoFix || o.alreadyFixed(table) {
		o.logger.Warn("table is missing required columns",
			"table", table, "missing", columnNames(d.MissingColumns))
		return Result{Table: table, Valid: false, MissingColumns: d.MissingColumns}, nil
	}

	unlock := o.lockTable(table)
	outcome, addErr := o.adder.AddMissingColumns(ctx, table, d.MissingColumns, cols)
	o.markFixed(table)
	unlock()

	res := Result{Table: table, FixedColumns: outcome.Added}
	if addErr != nil {
		for _, fe := range outcome.Failed {
			res.Errors = append(res.Errors, fe.Error())
		}
	}

	// Re-diagnose once, without fixing again.
	cols, err = o.reader.Columns(ctx, table)
	if err != nil {
		return Result{}, fmt.Errorf("re-introspecting table %q: %w", table, err)
	}
	d = diff.Analyze(table, cols, schema)
	res.Valid = len(d.MissingColumns) == 0
	res.MissingColumns = d.MissingColumns
	return res, nil
}

// ValidateTableSchema checks both column presence and column types. With
// autoFix it adds missing columns (subject to the once-per-run guard),
// converts each mismatched column, and re-diagnoses exactly once.
func (o *Orchestrator) ValidateTableSchema(ctx context.Context, table string, autoFix bool) (Result, error) {
	schema, ok := o.registry.Table(table)
	if !ok {
		o.logger.Debug("no expected schema defined", "table", table)
		return Result{Table: table, Valid: true}, nil
	}

	cols, err := o.reader.Columns(ctx, table)
	if err != nil {
		return Result{}, fmt.Errorf("introspecting table %q: %w", table, err)
	}
	d := diff.Analyze(table, cols, schema)

	if d.Clean() {
		return Result{Table: table, Valid: true}, nil
	}
	if !autoFix {
		return Result{
			Table:          table,
			Valid:          false,
			MissingColumns: d.MissingColumns,
			TypeMismatches: d.TypeMismatches,
		}, nil
	}

	unlock := o.lockTable(table)
	res := Result{Table: table}

	if len(d.MissingColumns) > 0 && !o.alreadyFixed(table) {
		outcome, addErr := o.adder.AddMissingColumns(ctx, table, d.MissingColumns, cols)
		o.markFixed(table)
		res.FixedColumns = append(res.FixedColumns, outcome.Added...)
		if addErr != nil {
			for _, fe := range outcome.Failed {
				res.Errors = append(res.Errors, fe.Error())
			}
		}
	}

	for _, m := range d.TypeMismatches {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, err.Error())
			break
		}
		if _, err := o.converter.ConvertColumnType(ctx, table, m.Column, m.ActualType, m.ExpectedSpec); err != nil {
			// The failed conversion rolled back; other columns proceed.
			res.Errors = append(res.Errors, err.Error())
			continue
		}
		res.FixedColumns = append(res.FixedColumns, m.Column)
	}
	unlock()

	// Re-diagnose once, without fixing again.
	cols, err = o.reader.Columns(ctx, table)
	if err != nil {
		return Result{}, fmt.Errorf("re-introspecting table %q: %w", table, err)
	}
	d = diff.Analyze(table, cols, schema)
	res.Valid = d.Clean()
	res.MissingColumns = d.MissingColumns
	res.TypeMismatches = d.TypeMismatches
	return res, nil
}

// EnsureValidSchema makes table fully conform to its expected schema:
// created from the registry if entirely absent, then column and type
// validation with auto-fix. Calling it twice in a row on a valid table
// performs only reads.
func (o *Orchestrator) EnsureValidSchema(ctx context.Context, table string) (bool, error) {
	exists, err := o.reader.TableExists(ctx, table)
	if err != nil {
		return false, fmt.Errorf("checking table %q: %w", table, err)
	}

	if !exists {
		stmt, err := o.registry.CreateTableSQL(table)
		if err != nil {
			o.logger.Error("cannot create table", "table", table, "error", err)
			return false, nil
		}
		unlock := o.lockTable(table)
		_, execErr := o.conn.Exec(ctx, stmt)
		unlock()
		if execErr != nil {
			return false, fmt.Errorf("creating table %q: %w", table, execErr)
		}
		o.logger.Info("created table", "table", table)
	}

	colRes, err := o.ValidateTable(ctx, table, true)
	if err != nil {
		return false, err
	}
	typeRes, err := o.ValidateTableSchema(ctx, table, true)
	if err != nil {
		return false, err
	}
	return colRes.Valid && typeRes.Valid, nil
}

// Outcome is the per-table result of a ReconcileAll pass.
type Outcome struct {
	Table string
	Valid bool
	Err   error
}

// ReconcileAll runs EnsureValidSchema over the given tables (all registry
// tables when nil) with bounded concurrency. A failing table never aborts
// its siblings. On cancellation no further tables are submitted; in-flight
// statements are left to finish rather than interrupted mid-DDL.
func (o *Orchestrator) ReconcileAll(ctx context.Context, tables []string, concurrency int) []Outcome {
	if tables == nil {
		tables = o.registry.TableNames()
	}
	if concurrency <= 0 {
		concurrency = 4
	}

	outcomes := make([]Outcome, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, table := range tables {
		if gctx.Err() != nil {
			outcomes[i] = Outcome{Table: table, Err: gctx.Err()}
			continue
		}
		i, table := i, table
		g.Go(func() error {
			valid, err := o.EnsureValidSchema(gctx, table)
			outcomes[i] = Outcome{Table: table, Valid: valid, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) alreadyFixed(table string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fixedTables[strings.ToLower(table)]
}

func (o *Orchestrator) markFixed(table string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fixedTables[strings.ToLower(table)] = true
}

// lockTable serializes repairs of a single table and returns the unlock.
func (o *Orchestrator) lockTable(table string) func() {
	key := strings.ToLower(table)
	o.mu.Lock()
	l, ok := o.tableLocks[key]
	if !ok {
		l = &sync.Mutex{}
		o.tableLocks[key] = l
	}
	o.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func columnNames(missing []diff.MissingColumn) []string {
	names := make([]string, len(missing))
	for i, m := range missing {
		names[i] = m.Name
	}
	return names
}

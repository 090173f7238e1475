package db

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ScriptedErr makes a MockConn fail the first statement containing Match.
// Each entry fires once, in the order it was added.
type ScriptedErr struct {
	Match string
	Err   error

	used bool
}

// MockConn is a test double for the Conn interface. It records every
// statement and simulates transactional rollback by discarding statements
// recorded since the transaction began.
type MockConn struct {
	mu sync.Mutex

	// Attempts holds every statement submitted, including failed ones and
	// ones later rolled back.
	Attempts []string
	// Statements holds statements that succeeded and were not rolled back.
	Statements []string

	Errs      []*ScriptedErr
	QueryErr  error
	Begun     int
	Commits   int
	Rollbacks int
}

// ScriptError registers an error for the next statement containing match.
func (m *MockConn) ScriptError(match string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errs = append(m.Errs, &ScriptedErr{Match: match, Err: err})
}

func (m *MockConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Attempts = append(m.Attempts, sql)
	for _, se := range m.Errs {
		if !se.used && se.Match != "" && strings.Contains(sql, se.Match) {
			se.used = true
			return pgconn.CommandTag{}, se.Err
		}
	}
	m.Statements = append(m.Statements, sql)
	return pgconn.CommandTag{}, nil
}

func (m *MockConn) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return nil, errors.New("MockConn does not support Query; use catalog.MockReader")
}

func (m *MockConn) InTx(_ context.Context, fn func(Execer) error) error {
	m.mu.Lock()
	m.Begun++
	snapshot := len(m.Statements)
	m.mu.Unlock()

	if err := fn(mockTxExecer{m}); err != nil {
		m.mu.Lock()
		m.Statements = m.Statements[:snapshot]
		m.Rollbacks++
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.Commits++
	m.mu.Unlock()
	return nil
}

// AttemptCount returns how many statements have been submitted so far.
func (m *MockConn) AttemptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Attempts)
}

// Committed returns a copy of the surviving (committed) statements.
func (m *MockConn) Committed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Statements))
	copy(out, m.Statements)
	return out
}

// mockTxExecer routes transaction statements back to the mock so the
// snapshot/rollback bookkeeping in InTx sees them.
type mockTxExecer struct {
	m *MockConn
}

func (t mockTxExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.m.Exec(ctx, sql, args...)
}

// compile-time interface check
var _ Conn = (*MockConn)(nil)

package catalog

import (
	"context"
	"strings"
	"sync"
)

// MockReader is a test double for the Reader interface.
type MockReader struct {
	mu sync.Mutex

	// ColumnsByTable maps lower-cased table names to their columns.
	ColumnsByTable map[string][]Column
	// ColumnsFunc, when set, overrides ColumnsByTable. call counts from 1
	// per table, so tests can return different catalog states across
	// successive introspections.
	ColumnsFunc func(table string, call int) ([]Column, error)
	ColumnsErr  error

	Existing  []string
	ExistsErr error

	columnsCalls map[string]int
}

func (m *MockReader) Columns(_ context.Context, table string) ([]Column, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ColumnsErr != nil {
		return nil, m.ColumnsErr
	}

	key := strings.ToLower(table)
	if m.columnsCalls == nil {
		m.columnsCalls = make(map[string]int)
	}
	m.columnsCalls[key]++

	if m.ColumnsFunc != nil {
		return m.ColumnsFunc(table, m.columnsCalls[key])
	}
	return m.ColumnsByTable[key], nil
}

func (m *MockReader) TableExists(_ context.Context, table string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	for _, t := range m.Existing {
		if strings.EqualFold(t, table) {
			return true, nil
		}
	}
	// Tables with configured columns are implicitly present.
	_, ok := m.ColumnsByTable[strings.ToLower(table)]
	return ok, nil
}

func (m *MockReader) Tables(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[string]bool{}
	var out []string
	for _, t := range m.Existing {
		if !seen[strings.ToLower(t)] {
			seen[strings.ToLower(t)] = true
			out = append(out, t)
		}
	}
	for t := range m.ColumnsByTable {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out, nil
}

// ColumnsCalls reports how many times Columns was invoked for table.
func (m *MockReader) ColumnsCalls(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.columnsCalls[strings.ToLower(table)]
}

// compile-time interface check
var _ Reader = (*MockReader)(nil)

// Package ledger records the type conversions performed during a process
// lifetime, for reporting and idempotency checks.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Record is one completed column type conversion.
type Record struct {
	Table     string    `json:"table"`
	Column    string    `json:"column"`
	FromType  string    `json:"from_type"`
	ToType    string    `json:"to_type"`
	Method    string    `json:"method"` // "direct" or "shadow-column"
	Timestamp time.Time `json:"timestamp"`
}

// Ledger is a concurrency-safe append-only log of conversion records.
type Ledger struct {
	mu      sync.Mutex
	records []Record
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Append adds a record, stamping the current time if none is set.
func (l *Ledger) Append(r Record) {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

// Records returns a copy of all records in append order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// ForTable returns the records for one table, matched case-insensitively.
func (l *Ledger) ForTable(table string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for _, r := range l.records {
		if strings.EqualFold(r.Table, table) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// WriteJSON writes the ledger contents to a JSON file.
func (l *Ledger) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}
	data, err := json.MarshalIndent(l.Records(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

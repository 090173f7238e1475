package catalog

import (
	"context"
	"os"
	"strconv"
	"testing"

	"github.com/schemamend/schemamend/internal/config"
	"github.com/schemamend/schemamend/internal/db"
)

// integrationPool connects using SCHEMAMEND_TEST_* env vars, or skips.
func integrationPool(t *testing.T) *db.Pool {
	t.Helper()

	host := os.Getenv("SCHEMAMEND_TEST_HOST")
	if host == "" {
		t.Skip("SCHEMAMEND_TEST_HOST not set; skipping live database test")
	}
	port, _ := strconv.Atoi(os.Getenv("SCHEMAMEND_TEST_PORT"))
	if port == 0 {
		port = 5432
	}

	pool, err := db.Connect(context.Background(), &config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Database: os.Getenv("SCHEMAMEND_TEST_DB"),
		Username: os.Getenv("SCHEMAMEND_TEST_USER"),
		Password: os.Getenv("SCHEMAMEND_TEST_PASSWORD"),
	})
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgres_Integration(t *testing.T) {
	pool := integrationPool(t)
	ctx := context.Background()
	reader := NewPostgres(pool, "public")

	const table = "schemamend_it_scratch"
	if _, err := pool.Exec(ctx, `CREATE TABLE `+table+` (id SERIAL PRIMARY KEY, "Mixed_Case" text, amount numeric(10,2))`); err != nil {
		t.Fatalf("creating scratch table: %v", err)
	}
	defer pool.Exec(ctx, "DROP TABLE "+table)

	exists, err := reader.TableExists(ctx, table)
	if err != nil || !exists {
		t.Fatalf("TableExists = %v, %v", exists, err)
	}

	cols, err := reader.Columns(ctx, table)
	if err != nil {
		t.Fatalf("Columns: %v", err)
	}
	if len(cols) != 3 {
		t.Fatalf("expected 3 columns, got %+v", cols)
	}
	if cols[1].Name != "Mixed_Case" {
		t.Errorf("catalog should preserve stored case, got %q", cols[1].Name)
	}
	if cols[2].DataType != "numeric" {
		t.Errorf("expected numeric data type, got %q", cols[2].DataType)
	}

	tables, err := reader.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables: %v", err)
	}
	found := false
	for _, name := range tables {
		if name == table {
			found = true
		}
	}
	if !found {
		t.Errorf("scratch table not listed in %v", tables)
	}
}

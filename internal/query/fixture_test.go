package query

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ecomdash/internal/core"
	"ecomdash/internal/storage"
)

// fixtureNow anchors relative date ranges; "Last 30 Days" starts 2026-09-18.
var fixtureNow = time.Date(2026, 10, 18, 15, 30, 0, 0, time.UTC)

// Product 4 is never ordered, customer 5 never orders and order 6 sells zero
// units of product 5.
const fixtureSeed = `
INSERT INTO customers VALUES
    (1, 'Ada Lovelace', 'ada@example.com', 'UK'),
    (2, 'Bo Peterson', 'bo@example.com', 'US'),
    (3, 'Cy Raman', 'cy@example.com', 'India'),
    (4, 'Di Sharma', 'di@example.com', 'India'),
    (5, 'Ed Idle', 'ed@example.com', 'Canada');
INSERT INTO products VALUES
    (1, 'Widget', 'Tools', 10),
    (2, 'Gadget', 'Electronics', 2500),
    (3, 'Gizmo', 'Electronics', 6000),
    (4, 'Unsold', 'Misc', 99),
    (5, 'Freebie', 'Promo', 50);
INSERT INTO orders VALUES
    (1, 1, 1, 3, '2024-01-15'),
    (2, 2, 2, 2, '2026-05-01'),
    (3, 3, 3, 2, '2026-10-01'),
    (4, 1, 2, 1, '2026-10-10'),
    (5, 4, 1, 5, '2026-09-25'),
    (6, 4, 5, 0, '2026-10-12');
`

func filterFor(r core.DateRange, details bool) core.Filter {
	return core.ResolveFilter(r, details, fixtureNow)
}

// newSchemaDB creates a migrated database with no rows.
func newSchemaDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecommerce.db")
	require.NoError(t, storage.RunMigrations(path))
	return path
}

// newFixtureDB creates a migrated database loaded with fixtureSeed.
func newFixtureDB(t *testing.T) string {
	t.Helper()
	path := newSchemaDB(t)
	script := filepath.Join(t.TempDir(), "seed.sql")
	require.NoError(t, os.WriteFile(script, []byte(fixtureSeed), 0644))
	_, err := storage.LoadScript(context.Background(), path, script)
	require.NoError(t, err)
	return path
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := storage.Open(path, storage.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newSQLAnalytics(t *testing.T, path string) *Analytics {
	t.Helper()
	exec := NewSQLExecutor(openDB(t, path), 5*time.Second)
	return NewAnalytics(exec, NewBuilder(DefaultOptions()))
}

func newTestDashboard(a *Analytics) *Dashboard {
	d := NewDashboard(a, 4)
	d.now = func() time.Time { return fixtureNow }
	return d
}

// countingExecutor counts calls that reach the wrapped executor.
type countingExecutor struct {
	next  Executor
	calls atomic.Int64
}

func (c *countingExecutor) Execute(ctx context.Context, q Query) (ResultSet, error) {
	c.calls.Add(1)
	return c.next.Execute(ctx, q)
}

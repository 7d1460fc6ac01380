package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// Options tune the read pool used by the dashboard.
type Options struct {
	MaxOpenConns int
	BusyTimeout  time.Duration
}

func DefaultOptions() Options {
	return Options{
		MaxOpenConns: 4,
		BusyTimeout:  5 * time.Second,
	}
}

// Open returns a read-only handle on dbPath. The pool keeps no idle connections,
// so a connection only exists while a query holds it and the file is never kept
// locked between renders. Open does not touch the file; use Ping for that.
func Open(dbPath string, opts Options) (*sql.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("open sqlite database: empty path")
	}
	db, err := sql.Open(driverName, readOnlyDSN(dbPath, opts.BusyTimeout))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	db.SetMaxIdleConns(0)
	return db, nil
}

// Ping checks that the database file can be opened and answers a trivial query.
func Ping(ctx context.Context, db *sql.DB) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func readOnlyDSN(dbPath string, busy time.Duration) string {
	q := url.Values{}
	q.Set("mode", "ro")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	return "file:" + dbPath + "?" + q.Encode()
}

func writableDSN(dbPath string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	return "file:" + dbPath + "?" + q.Encode()
}

func ensureDir(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return nil
}

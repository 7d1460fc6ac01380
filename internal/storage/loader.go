package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"
)

var ErrEmptyScript = errors.New("sql script is empty")

// LoadResult summarizes a successful LoadScript run.
type LoadResult struct {
	DBPath    string
	Script    string
	Customers int64
	Products  int64
	Orders    int64
	Duration  time.Duration
}

// LoadScript executes every statement of the SQL script at scriptPath against
// dbPath, creating the file if needed. The script runs in a single transaction:
// on any error nothing is applied and the driver error is returned as is, wrapped
// with context. Scripts that are not idempotent fail on a populated database.
func LoadScript(ctx context.Context, dbPath, scriptPath string) (LoadResult, error) {
	start := time.Now()
	res := LoadResult{DBPath: dbPath, Script: scriptPath}

	script, err := os.ReadFile(scriptPath)
	if err != nil {
		return res, fmt.Errorf("read sql script: %w", err)
	}

	if err := ensureDir(dbPath); err != nil {
		return res, err
	}

	db, err := sql.Open(driverName, writableDSN(dbPath))
	if err != nil {
		return res, fmt.Errorf("open sqlite database: %w", err)
	}
	defer db.Close()

	if err := ExecScript(ctx, db, string(script)); err != nil {
		return res, fmt.Errorf("execute %s: %w", scriptPath, err)
	}

	res.Customers, res.Products, res.Orders = countRows(ctx, db)
	res.Duration = time.Since(start)

	slog.InfoContext(ctx, "SQL script applied",
		"component", "loader",
		"db_path", dbPath,
		"script", scriptPath,
		"customers", res.Customers,
		"products", res.Products,
		"orders", res.Orders,
		"duration_ms", res.Duration.Milliseconds())

	return res, nil
}

// selfFramed matches a statement that opens a transaction, as in sqlite3 .dump
// output. Trigger bodies ("BEGIN" followed by statements) do not match.
var selfFramed = regexp.MustCompile(`(?im)^\s*BEGIN(\s+(DEFERRED|IMMEDIATE|EXCLUSIVE))?(\s+TRANSACTION)?\s*;`)

// ExecScript runs a multi-statement script atomically. Scripts that manage
// their own transaction run as written on a single connection; if they fail
// mid-way the open transaction is rolled back.
func ExecScript(ctx context.Context, db *sql.DB, script string) error {
	if strings.TrimSpace(script) == "" {
		return ErrEmptyScript
	}
	if selfFramed.MatchString(script) {
		return execFramed(ctx, db, script)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func execFramed(ctx context.Context, db *sql.DB, script string) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, script); err != nil {
		// Fails with "no transaction is active" when the script never got
		// past its BEGIN or already committed; nothing to undo then.
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		return err
	}
	return nil
}

// countRows reports table sizes for the load summary. Missing tables count as zero.
func countRows(ctx context.Context, db *sql.DB) (customers, products, orders int64) {
	count := func(table string) int64 {
		var n int64
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return 0
		}
		return n
	}
	return count("customers"), count("products"), count("orders")
}

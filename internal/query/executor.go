package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecomdash/internal/metrics"
)

// Executor runs one query and returns its rows.
type Executor interface {
	Execute(ctx context.Context, q Query) (ResultSet, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, q Query) (ResultSet, error)

func (f ExecutorFunc) Execute(ctx context.Context, q Query) (ResultSet, error) {
	return f(ctx, q)
}

// SQLExecutor runs queries against a database/sql pool. Every query gets its
// own deadline and its own connection, released as soon as the rows are read.
type SQLExecutor struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSQLExecutor(db *sql.DB, timeout time.Duration) *SQLExecutor {
	return &SQLExecutor{db: db, timeout: timeout}
}

func (e *SQLExecutor) Execute(ctx context.Context, q Query) (ResultSet, error) {
	start := time.Now()
	rs, err := e.execute(ctx, q)
	metrics.RecordQuery(q.Name, time.Since(start), ErrorType(err))
	return rs, err
}

func (e *SQLExecutor) execute(ctx context.Context, q Query) (ResultSet, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	conn, err := e.db.Conn(ctx)
	if err != nil {
		return ResultSet{}, wrapErr(ctx, q, "acquire connection", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return ResultSet{}, wrapErr(ctx, q, "query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return ResultSet{}, wrapErr(ctx, q, "read columns", err)
	}

	rs := ResultSet{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return ResultSet{}, wrapErr(ctx, q, "scan", err)
		}
		for i, v := range vals {
			// Drivers may reuse byte buffers between rows.
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, wrapErr(ctx, q, "iterate rows", err)
	}
	return rs, nil
}

func wrapErr(ctx context.Context, q Query, op string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %s: %w: %w", q.Name, op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %s: %w", q.Name, op, err)
}

package query

import (
	"context"
	"errors"

	applog "ecomdash/internal/log"
)

var (
	// ErrNoData marks a query whose result could not be produced; callers render
	// an empty, labeled panel.
	ErrNoData = errors.New("no data")

	// ErrTimeout marks a query that exceeded its execution deadline.
	ErrTimeout = errors.New("query timed out")
)

// ErrorType classifies err for logs and metrics. Nil is "".
func ErrorType(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return applog.ErrorTypeTimeout
	case errors.Is(err, context.Canceled):
		return applog.ErrorTypeCanceled
	default:
		return applog.ErrorTypeDatabase
	}
}

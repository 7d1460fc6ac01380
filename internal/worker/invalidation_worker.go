package worker

import (
	"context"
	"log/slog"
	"time"

	"ecomdash/internal/amqp"
	"ecomdash/internal/metrics"
)

// Consumer is the subscribing side of the invalidation bus.
type Consumer interface {
	ConsumeDatasetLoaded(ctx context.Context, handler func(context.Context, *amqp.DatasetLoadedMessage) error) error
	Close() error
}

// Purger drops cached query results.
type Purger interface {
	Purge()
}

// InvalidationWorker purges the query cache whenever a loader run announces
// new data. It reconnects to the broker with exponential backoff until its
// context is canceled.
type InvalidationWorker struct {
	dial    func(ctx context.Context) (Consumer, error)
	purger  Purger
	backoff func(attempt int) time.Duration
}

func NewInvalidationWorker(dial func(ctx context.Context) (Consumer, error), purger Purger) *InvalidationWorker {
	return &InvalidationWorker{
		dial:    dial,
		purger:  purger,
		backoff: amqp.ExponentialBackoff,
	}
}

// HandleDatasetLoaded processes a single dataset loaded message.
func (w *InvalidationWorker) HandleDatasetLoaded(ctx context.Context, msg *amqp.DatasetLoadedMessage) error {
	w.purger.Purge()
	metrics.RecordInvalidation("amqp")

	slog.InfoContext(ctx, "Query cache purged after dataset load",
		"component", "worker",
		"db_path", msg.DBPath,
		"orders", msg.Orders,
		"loaded_at", msg.Timestamp)
	return nil
}

// Run consumes until ctx is done. It only returns nil, after ctx ends.
func (w *InvalidationWorker) Run(ctx context.Context) error {
	attempt := 0
	for {
		consumer, err := w.dial(ctx)
		if err == nil {
			attempt = 0
			err = consumer.ConsumeDatasetLoaded(ctx, w.HandleDatasetLoaded)
			consumer.Close()
		}
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Invalidation worker stopped", "component", "worker")
			return nil
		}

		delay := w.backoff(attempt)
		attempt++
		slog.WarnContext(ctx, "Invalidation consumer disconnected, retrying",
			"component", "worker",
			"error", err,
			"connection_error", amqp.IsConnectionError(err),
			"attempt", attempt,
			"retry_in", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.InfoContext(ctx, "Invalidation worker stopped", "component", "worker")
			return nil
		case <-timer.C:
		}
	}
}

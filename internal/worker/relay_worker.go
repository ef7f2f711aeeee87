package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"moneymind/internal/events"
	"moneymind/internal/log"
)

// ChangeSource delivers changes committed by other instances.
type ChangeSource interface {
	ConsumeChanges(ctx context.Context, handler func(events.Change) error) error
}

// RelayStats counts what the relay worker has seen since start.
type RelayStats struct {
	Relayed int64 `json:"relayed"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// RelayWorker forwards changes from a shared exchange to this instance's
// local publishers, so subscribers and caches here see mutations made
// elsewhere.
type RelayWorker struct {
	source ChangeSource
	local  events.Publisher
	logger *log.Logger

	relayed atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

func NewRelayWorker(source ChangeSource, local ...events.Publisher) *RelayWorker {
	return &RelayWorker{
		source: source,
		local:  events.Multi(local),
		logger: log.Default(log.ComponentWorker),
	}
}

// HandleChange publishes one remote change locally. Changes without a user
// or entity cannot be routed and are dropped without error so the message is
// acknowledged.
func (w *RelayWorker) HandleChange(ctx context.Context, c events.Change) error {
	if c.UserID == "" || c.Entity == "" {
		w.skipped.Add(1)
		w.logger.WarnContext(ctx, "Skipping unroutable change", "id", c.ID, "op", c.Op)
		return nil
	}
	if err := w.local.Publish(ctx, c); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("relay %s %s: %w", c.Entity, c.ID, err)
	}
	w.relayed.Add(1)
	w.logger.DebugContext(ctx, "Relayed change",
		log.NewFields().
			WithUser(c.UserID).
			WithEntity(string(c.Entity), c.ID).
			WithOperation(string(c.Op)).
			ToSlice()...)
	return nil
}

// Run consumes until ctx is done. A cancelled context is a clean stop.
func (w *RelayWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting change relay")
	err := w.source.ConsumeChanges(ctx, func(c events.Change) error {
		return w.HandleChange(ctx, c)
	})
	if err == nil || errors.Is(err, context.Canceled) {
		w.logger.InfoContext(ctx, "Change relay stopped", slog.Int64("relayed", w.relayed.Load()))
		return nil
	}
	return fmt.Errorf("change relay: %w", err)
}

func (w *RelayWorker) Stats() RelayStats {
	return RelayStats{
		Relayed: w.relayed.Load(),
		Skipped: w.skipped.Load(),
		Failed:  w.failed.Load(),
	}
}

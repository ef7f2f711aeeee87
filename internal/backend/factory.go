package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moneymind/internal/amqp"
	"moneymind/internal/ledger"
	"moneymind/internal/ledger/memory"
	"moneymind/internal/log"
	"moneymind/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With("component", log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   ledger.Ledger
		cleanup []func() error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		cleanup = append(cleanup, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = memory.New()
		f.logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if err := store.Ping(ctx); err != nil {
		f.logger.Error("Backend ping failed",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeDatabase).ToSlice()...)
		return nil, errors.Join(fmt.Errorf("backend not reachable: %w", err), runAll(cleanup))
	}

	var relay *amqp.Client
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without relay",
				log.NewFields().WithError(err).WithErrorType(log.ErrorTypeNetwork).ToSlice()...)
		} else {
			relay = client
			cleanup = append(cleanup, relay.Close)
			f.logger.Info("Initialized AMQP change relay", "exchange", config.AMQPExchange, "origin", relay.Origin())
		}
	}

	return &BackendResult{
		Ledger: store,
		Relay:  relay,
		Cleanup: func() error {
			return runAll(cleanup)
		},
	}, nil
}

// runAll releases resources in reverse order of acquisition.
func runAll(fns []func() error) error {
	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

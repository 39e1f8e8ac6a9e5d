package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/iterator"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	repo "github.com/joseph-ayodele/docu-prompt-engine/internal/repository"
)

// Store is an opened document repository with its lifecycle hooks.
type Store struct {
	repo.DocumentRepository
	Ping  func(ctx context.Context) error
	Close func()
}

// OpenStore connects the configured backend and, for SQL drivers, applies the
// documents migration.
func OpenStore(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Driver == "firestore" {
		logger.Info("connecting to firestore", "project", cfg.FirestoreProject, "collection", cfg.FirestoreCollection)
		client, err := repo.OpenFirestore(ctx, cfg.FirestoreProject)
		if err != nil {
			logger.Error("failed to connect to firestore", "error", err)
			return nil, err
		}
		docs := repo.NewFirestoreDocumentRepository(client, cfg.FirestoreCollection, logger)
		return &Store{
			DocumentRepository: docs,
			Ping: func(ctx context.Context) error {
				it := client.Collection(cfg.FirestoreCollection).Limit(1).Documents(ctx)
				defer it.Stop()
				if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
					return err
				}
				return nil
			},
			Close: func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close firestore client", "error", err)
				}
			},
		}, nil
	}

	db, err := repo.Open(ctx, repo.Config{
		Driver:           cfg.Driver,
		DSN:              cfg.DSN,
		MaxConns:         cfg.MaxConns,
		MinConns:         cfg.MinConns,
		MaxConnLifetime:  cfg.MaxConnLifetime,
		MaxConnIdleTime:  cfg.MaxConnIdleTime,
		DialTimeout:      cfg.DialTimeout,
		StatementTimeout: cfg.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	if err := PingDB(ctx, db, logger, 3*time.Second); err != nil {
		db.Close(logger)
		return nil, err
	}
	if err := repo.Migrate(ctx, db.Driver); err != nil {
		logger.Error("database migration failed", "error", err)
		db.Close(logger)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("successfully connected to database", "dialect", db.Dialect())

	return &Store{
		DocumentRepository: repo.NewDocumentRepository(db.Driver, logger),
		Ping: func(ctx context.Context) error {
			return db.HealthCheck(ctx, 2*time.Second, logger)
		},
		Close: func() { db.Close(logger) },
	}, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	if err := db.HealthCheck(ctx, timeout, logger); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	return nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ftsync/internal/app"
	"github.com/kailas-cloud/ftsync/internal/config"
	recordrepo "github.com/kailas-cloud/ftsync/internal/repository/record"
	indexuc "github.com/kailas-cloud/ftsync/internal/usecase/index"
	"github.com/kailas-cloud/ftsync/internal/version"
)

// bootstrap opens the record database and builds the services. The returned
// cleanup closes both.
func bootstrap(ctx context.Context, rt *runtime) (*app.App, func(), error) {
	cfg := rt.cfg
	logger := rt.logger

	logger.Info("Starting ftsync",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", rt.env),
		zap.String("index_driver", cfg.Index.Driver),
		zap.String("db_driver", cfg.Database.Driver),
	)

	conn, err := recordrepo.Open(ctx, recordrepo.Dialect(cfg.Database.Driver), cfg.Database.DSN, recordrepo.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeSec) * time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open record database: %w", err)
	}
	logger.Info("Connected to record database")

	a, err := app.New(settingsFrom(&cfg, conn, logger))
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	cleanup := func() {
		a.Close()
		if err := conn.Close(); err != nil {
			logger.Warn("Failed to close record database", zap.Error(err))
		}
	}

	if err := a.Prepare(ctx, cfg.Index.ReadinessTimeout()); err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, cleanup, nil
}

func settingsFrom(cfg *config.Config, conn *sql.DB, logger *zap.Logger) app.Settings {
	return app.Settings{
		Driver: cfg.Index.Driver,
		Endpoint: indexuc.Endpoint{
			Host:     cfg.Index.Host,
			Port:     cfg.Index.Port,
			Node:     cfg.Index.Node,
			User:     cfg.Index.User,
			Password: cfg.Index.Password,
		},
		Path:     cfg.Index.Path,
		Prefix:   cfg.Index.Prefix,
		Types:    cfg.Descriptors(),
		DB:       conn,
		Dialect:  recordrepo.Dialect(cfg.Database.Driver),
		Tables:   cfg.Tables(),
		Timeout:  cfg.Index.Timeout(),
		PageSize: cfg.Index.PageSize,
		Logger:   logger,
	}
}

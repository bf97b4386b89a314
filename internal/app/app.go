// Package app wires the index drivers, record store and sync services
// into one object shared by the CLI and the public client.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ftsync/internal/db"
	dbBleve "github.com/kailas-cloud/ftsync/internal/db/bleve"
	dbRedis "github.com/kailas-cloud/ftsync/internal/db/redis"
	"github.com/kailas-cloud/ftsync/internal/domain/document"
	domrec "github.com/kailas-cloud/ftsync/internal/domain/record"
	"github.com/kailas-cloud/ftsync/internal/domain/searchable"
	"github.com/kailas-cloud/ftsync/internal/metrics"
	recordrepo "github.com/kailas-cloud/ftsync/internal/repository/record"
	healthuc "github.com/kailas-cloud/ftsync/internal/usecase/health"
	indexuc "github.com/kailas-cloud/ftsync/internal/usecase/index"
	lifecycleuc "github.com/kailas-cloud/ftsync/internal/usecase/lifecycle"
)

// Index drivers.
const (
	DriverRedis = "redis"
	DriverBleve = "bleve"
)

// Settings configures an App.
type Settings struct {
	Driver   string
	Endpoint indexuc.Endpoint
	// Path is the bleve index location; empty keeps the index in memory.
	Path string
	// Prefix is the redis key prefix of index documents.
	Prefix string

	Types []searchable.Descriptor

	// DB is the record store connection; nil disables hydration and reindexing.
	DB      *sql.DB
	Dialect recordrepo.Dialect
	Tables  map[string]string

	Timeout  time.Duration
	PageSize int
	Logger   *zap.Logger
}

// App holds the wired services.
type App struct {
	Registry *searchable.Registry
	Driver   db.IndexService
	Pool     *indexuc.Pool
	Index    *indexuc.Set
	Records  *recordrepo.Repo
	Sync     *lifecycleuc.Service
	Health   *healthuc.Service

	endpoint indexuc.Endpoint
	logger   *zap.Logger
}

// New builds the registry, the driver of the configured endpoint and every
// service on top of it. Nothing touches the network until first use.
func New(s Settings) (*App, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.RegisterIndexMetrics()

	reg, err := searchable.NewRegistry(s.Types...)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	driver, err := newDriver(s, s.Endpoint)
	if err != nil {
		return nil, err
	}

	// bleve is embedded: every endpoint maps to the one open store.
	pool := indexuc.NewPool(func(ep indexuc.Endpoint) (indexuc.IndexService, error) {
		d := driver
		if ep != s.Endpoint && s.Driver != DriverBleve {
			var err error
			if d, err = newDriver(s, ep); err != nil {
				return nil, err
			}
		}
		return indexuc.NewInstrumentedService(d, logger.With(zap.String("endpoint", ep.String()))), nil
	})

	var (
		hydrator indexuc.Hydrator = noRecords{}
		records  lifecycleuc.RecordStore
		repo     *recordrepo.Repo
		recPing  healthuc.Pinger
	)
	if s.DB != nil {
		repo, err = recordrepo.New(s.DB, s.Dialect, reg, s.Tables)
		if err != nil {
			return nil, fmt.Errorf("record store: %w", err)
		}
		hydrator, records, recPing = repo, repo, repo
	}

	opts := []indexuc.Option{indexuc.WithPageSize(s.PageSize)}
	if s.Timeout > 0 {
		opts = append(opts, indexuc.WithTimeout(s.Timeout))
	}
	set, err := indexuc.NewSet(reg, pool, s.Endpoint, hydrator, logger, opts...)
	if err != nil {
		return nil, err
	}

	return &App{
		Registry: reg,
		Driver:   driver,
		Pool:     pool,
		Index:    set,
		Records:  repo,
		Sync:     lifecycleuc.New(reg, lifecycleuc.AdaptersOf(set), records, logger),
		Health:   healthuc.New(healthuc.PingFunc(driver.Ping), recPing),
		endpoint: s.Endpoint,
		logger:   logger,
	}, nil
}

func newDriver(s Settings, ep indexuc.Endpoint) (db.IndexService, error) {
	switch s.Driver {
	case DriverRedis, "":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    []string{ep.Addr()},
			Username: ep.User,
			Password: ep.Password,
			Index:    ep.Node,
			Prefix:   s.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store for %s: %w", ep, err)
		}
		return store, nil
	case DriverBleve:
		return dbBleve.NewStore(dbBleve.Config{Path: s.Path}), nil
	default:
		return nil, fmt.Errorf("unknown index driver %q", s.Driver)
	}
}

// IndexDefinition returns the schema covering every registered attribute.
func (a *App) IndexDefinition() (*db.IndexDefinition, error) {
	b := db.NewIndex(a.endpoint.Node)
	for _, key := range a.Registry.AttributeKeys() {
		b.Sortable(document.AttributeName(key))
	}
	return b.Build()
}

// Prepare waits for the index service and creates the index if missing.
func (a *App) Prepare(ctx context.Context, readiness time.Duration) error {
	if err := a.Driver.WaitForReady(ctx, readiness); err != nil {
		return fmt.Errorf("index service not ready: %w", err)
	}
	def, err := a.IndexDefinition()
	if err != nil {
		return fmt.Errorf("index definition: %w", err)
	}
	if err := a.Driver.EnsureIndex(ctx, def); err != nil {
		return fmt.Errorf("ensure index %s: %w", def.Name, err)
	}
	a.logger.Info("Index ready", zap.String("endpoint", a.endpoint.String()), zap.Int("fields", len(def.Fields)))
	return nil
}

// NewRecord creates a record of a registered type with its watched set.
func (a *App) NewRecord(typeName string, id int64, attrs map[string]any) (*domrec.Record, error) {
	t, err := a.Registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	return domrec.New(typeName, id, attrs, t.Watched()), nil
}

// Close releases the index drivers.
func (a *App) Close() {
	a.Pool.Close()
	a.Driver.Close()
}

var errNoRecordStore = errors.New("no record store configured")

// noRecords fails hydration when no record store is configured.
type noRecords struct{}

func (noRecords) FetchByIDs(_ context.Context, typeName string, _ []string, _ map[string]any) ([]*domrec.Record, error) {
	return nil, fmt.Errorf("hydrate %s: %w", typeName, errNoRecordStore)
}

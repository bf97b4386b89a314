package ftsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/ftsync/internal/app"
	"github.com/kailas-cloud/ftsync/internal/domain/record"
	"github.com/kailas-cloud/ftsync/internal/domain/search/request"
	recordrepo "github.com/kailas-cloud/ftsync/internal/repository/record"
	indexuc "github.com/kailas-cloud/ftsync/internal/usecase/index"
)

// Record is an application record tracked for search. Write watched
// attributes with Set so updates know whether to reindex.
type Record = record.Record

// Entry is one stored index entry.
type Entry = indexuc.Entry

// Client is the ftsync entry point.
type Client struct {
	app *app.App
}

// New creates a Client, waits for the index service and creates the index
// if it is missing.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		node:             defaultNode,
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("ftsync: index service required (use WithRedis or WithBleve)")
	}
	if len(cfg.types) == 0 {
		return nil, errors.New("ftsync: no record types registered (use WithTypes)")
	}

	a, err := app.New(app.Settings{
		Driver: cfg.driver,
		Endpoint: indexuc.Endpoint{
			Host:     cfg.host,
			Port:     cfg.port,
			Node:     cfg.node,
			User:     cfg.user,
			Password: cfg.password,
		},
		Path:     cfg.path,
		Prefix:   cfg.prefix,
		Types:    cfg.types,
		DB:       cfg.db,
		Dialect:  recordrepo.Dialect(cfg.dialect),
		Tables:   cfg.tables,
		Timeout:  cfg.timeout,
		PageSize: cfg.pageSize,
		Logger:   cfg.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("ftsync: %w", err)
	}

	if err := a.Prepare(context.Background(), cfg.readinessTimeout); err != nil {
		a.Close()
		return nil, fmt.Errorf("ftsync: %w", err)
	}

	return &Client{app: a}, nil
}

// Close releases all resources. The record database is left open.
func (c *Client) Close() {
	if c.app != nil {
		c.app.Close()
	}
}

// Ping checks index service connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.app.Driver.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Types returns the record types that can be searched, in registration order.
func (c *Client) Types() []string {
	return c.app.Index.Names()
}

// NewRecord creates a record of a registered type.
func (c *Client) NewRecord(typeName string, id int64, attrs map[string]any) (*Record, error) {
	return c.app.NewRecord(typeName, id, attrs)
}

// AfterCreate registers the entry of a new record.
func (c *Client) AfterCreate(ctx context.Context, rec *Record) error {
	return c.app.Sync.AfterCreate(ctx, rec)
}

// AfterUpdate replaces the entry of rec when a watched attribute changed.
func (c *Client) AfterUpdate(ctx context.Context, rec *Record) error {
	return c.app.Sync.AfterUpdate(ctx, rec)
}

// UpdateIndex replaces the entry of rec when it changed or force is set.
func (c *Client) UpdateIndex(ctx context.Context, rec *Record, force bool) error {
	return c.app.Sync.UpdateIndex(ctx, rec, force)
}

// AfterDestroy removes the entry of rec. A missing entry is not an error.
func (c *Client) AfterDestroy(ctx context.Context, rec *Record) error {
	return c.app.Sync.AfterDestroy(ctx, rec)
}

// AfterSave clears the change set of rec.
func (c *Client) AfterSave(rec *Record) {
	c.app.Sync.AfterSave(rec)
}

// Saved runs the create or update hook and clears the change set of rec
// only when the index was updated.
func (c *Client) Saved(ctx context.Context, rec *Record, created bool) error {
	return c.app.Sync.Saved(ctx, rec, created)
}

// ReindexAll rebuilds the entry of every record of typeName and returns how
// many were reindexed before any failure.
func (c *Client) ReindexAll(ctx context.Context, typeName string) (int, error) {
	return c.app.Sync.ReindexAll(ctx, typeName)
}

// ClearIndex removes every entry of typeName and returns how many were removed.
func (c *Client) ClearIndex(ctx context.Context, typeName string) (int, error) {
	return c.app.Sync.ClearIndex(ctx, typeName)
}

// ListAll returns every entry of typeName.
func (c *Client) ListAll(ctx context.Context, typeName string) ([]Entry, error) {
	return c.app.Index.ListAll(ctx, typeName)
}

// Search starts a search over the entries of typeName.
func (c *Client) Search(typeName string) *SearchBuilder {
	return &SearchBuilder{client: c, typeName: typeName}
}

// Query runs a search with loosely typed options, such as decoded JSON.
// Unknown option keys are a configuration error.
func (c *Client) Query(ctx context.Context, typeName, phrase string, options map[string]any) (*SearchResult, error) {
	opts, err := request.OptionsFromMap(options)
	if err != nil {
		return nil, err
	}
	res, err := c.app.Index.Search(ctx, typeName, phrase, opts)
	if err != nil {
		return nil, err
	}
	return fromResult(&res), nil
}

package ftsync

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ftsync/internal/domain/searchable"
)

// TypeDescriptor registers a record type.
type TypeDescriptor = searchable.Descriptor

// Projection maps an index attribute to the record attribute it is read from.
type Projection = searchable.Projection

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	defaultNode             = "ftsync"
	defaultReadinessTimeout = 10 * time.Second
)

type clientConfig struct {
	driver   string // "redis" or "bleve"
	host     string
	port     int
	user     string
	password string
	node     string
	prefix   string
	path     string

	types []TypeDescriptor

	db      *sql.DB
	dialect string
	tables  map[string]string

	timeout          time.Duration
	readinessTimeout time.Duration
	pageSize         int

	logger *zap.Logger
}

// WithRedis stores the index in Redis with the search module.
func WithRedis(host string, port int, user, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.host = host
		c.port = port
		c.user = user
		c.password = password
	})
}

// WithBleve stores the index in an embedded bleve index at path.
// An empty path keeps the index in memory.
func WithBleve(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "bleve"
		c.path = path
	})
}

// WithNode sets the index name. Default: "ftsync".
func WithNode(node string) Option {
	return optionFunc(func(c *clientConfig) {
		c.node = node
	})
}

// WithKeyPrefix sets the Redis key prefix of index documents.
// Default: "<node>:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.prefix = prefix
	})
}

// WithTypes registers record types. May be given several times.
func WithTypes(descs ...TypeDescriptor) Option {
	return optionFunc(func(c *clientConfig) {
		c.types = append(c.types, descs...)
	})
}

// WithDB sets the record database used to hydrate search results and to
// reindex. dialect is "postgres" or "sqlite"; the caller owns db.
func WithDB(db *sql.DB, dialect string) Option {
	return optionFunc(func(c *clientConfig) {
		c.db = db
		c.dialect = dialect
	})
}

// WithTables overrides the table of record types. By default a type reads
// from the lowercased plural of its hierarchy top.
func WithTables(tables map[string]string) Option {
	return optionFunc(func(c *clientConfig) {
		c.tables = tables
	})
}

// WithTimeout bounds every index call. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.timeout = d
	})
}

// WithReadinessTimeout bounds how long New waits for the index service.
// Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithPageSize sets how many entries are fetched per page when listing or
// removing entries. Default: 500.
func WithPageSize(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.pageSize = n
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

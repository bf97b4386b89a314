package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ftsync/internal/db"
)

// Compile-time check: Store implements db.IndexService.
var _ db.IndexService = (*Store)(nil)

// Config holds connection parameters for a Redis store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
	// Index is the FT index name; documents live under Prefix (default "<Index>:").
	Index  string
	Prefix string
}

// Store implements db.IndexService on RediSearch via rueidis for Redis 8+.
// The connection is opened on first use so that constructing a store never
// touches the network.
type Store struct {
	cfg    Config
	index  string
	prefix string

	mu     sync.Mutex
	client rueidis.Client
}

// NewStore validates cfg and returns a store that connects lazily.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if !db.IsValidIdentifier(cfg.Index) {
		return nil, fmt.Errorf("invalid index name %q", cfg.Index)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = cfg.Index + ":"
	}
	return &Store{cfg: cfg, index: cfg.Index, prefix: prefix}, nil
}

func (s *Store) conn() (rueidis.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  s.cfg.Addrs,
		Username:     s.cfg.Username,
		Password:     s.cfg.Password,
		SelectDB:     s.cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	s.client = client
	return client, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	c, err := s.conn()
	if err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	if err := c.Do(ctx, c.B().Ping().Build()).Error(); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close shuts down the client if it was opened.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for index service: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// arbitrary runs a raw command on the lazily opened client.
func (s *Store) arbitrary(ctx context.Context, op string, args ...string) (rueidis.RedisResult, error) {
	c, err := s.conn()
	if err != nil {
		return rueidis.RedisResult{}, &db.Error{Op: op, Err: err}
	}
	return c.Do(ctx, c.B().Arbitrary(op).Args(args...).Build()), nil
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return containsIgnoreCase(re.Error(), substr)
}

func containsIgnoreCase(s, substr string) bool {
	ls := len(s)
	lsub := len(substr)
	if lsub > ls {
		return false
	}
	for i := 0; i <= ls-lsub; i++ {
		match := true
		for j := 0; j < lsub; j++ {
			sc := s[i+j]
			tc := substr[j]
			if sc >= 'A' && sc <= 'Z' {
				sc += 'a' - 'A'
			}
			if tc >= 'A' && tc <= 'Z' {
				tc += 'a' - 'A'
			}
			if sc != tc {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store around a pre-built client (mock).
func NewStoreForTest(c rueidis.Client, index string) *Store {
	return &Store{
		cfg:    Config{Index: index},
		index:  index,
		prefix: index + ":",
		client: c,
	}
}

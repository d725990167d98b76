// Package redis provides a Store implementation backed by Redis, grounded on the
// teacher's own redis package: a thin Options/connection wrapper around go-redis, and a
// lock algorithm that claims a key with a plain Set then re-Gets it to confirm which
// holder actually won the race.
package redis

import (
	"crypto/tls"

	"github.com/redis/go-redis/v9"
)

// Options holds configuration for connecting to a Redis server.
type Options struct {
	Address   string
	Password  string
	DB        int
	TLSConfig *tls.Config
}

// DefaultOptions returns an Options pointing at a local default Redis instance.
func DefaultOptions() Options {
	return Options{
		Address: "localhost:6379",
	}
}

// Dial opens a new go-redis client from options. The caller owns the returned client
// and is responsible for calling Close on it.
func Dial(options Options) *redis.Client {
	return redis.NewClient(&redis.Options{
		TLSConfig: options.TLSConfig,
		Addr:      options.Address,
		Password:  options.Password,
		DB:        options.DB,
	})
}

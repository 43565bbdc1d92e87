// Package redis implements the shared analysis cache, sweep lock, API rate
// limiter and signal event bus on go-redis/v9.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every key and channel unless configured.
const DefaultNamespace = "signalforge"

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
	// Namespace separates deployments sharing one Redis.
	Namespace string
}

// keyspace builds namespaced keys: "<ns>:<part>:<part>".
type keyspace string

func (k keyspace) key(parts ...string) string {
	return string(k) + ":" + strings.Join(parts, ":")
}

// Client is the connection shared by the cache, lock, limiter and bus.
type Client struct {
	rdb  *redis.Client
	keys keyspace
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis: addr is required")
	}
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		ClientName:   DefaultNamespace,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	c := newClient(redis.NewClient(opts), cfg.Namespace)
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, err
	}
	return c, nil
}

// NewFromRedis wraps an existing go-redis client under the default namespace.
func NewFromRedis(rdb *redis.Client) *Client {
	return newClient(rdb, "")
}

func newClient(rdb *redis.Client, namespace string) *Client {
	ns := strings.Trim(strings.TrimSpace(namespace), ":")
	if ns == "" {
		ns = DefaultNamespace
	}
	return &Client{rdb: rdb, keys: keyspace(ns)}
}

// Ping checks the Redis connection. It backs the health endpoint's
// readiness check.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

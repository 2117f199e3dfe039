// Package cache provides the response cache used by the assistant.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client defines the cache interface.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

// Key joins key components with ':'.
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// AnswerKey scopes a cached answer to a knowledge base fingerprint so a reload
// never serves results computed against the previous knowledge base.
func AnswerKey(fingerprint string, parts ...string) string {
	return Key(append([]string{"answer", fingerprint}, parts...)...)
}

// NopClient never stores anything.
type NopClient struct{}

func (NopClient) Get(context.Context, string) ([]byte, error)              { return nil, ErrCacheMiss }
func (NopClient) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NopClient) Delete(context.Context, string) error                     { return nil }
func (NopClient) DeleteByPrefix(context.Context, string) error             { return nil }
func (NopClient) Close() error                                             { return nil }

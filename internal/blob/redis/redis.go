// Package redis stores blobs as Redis hashes holding the payload and its
// content type.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/raakeshmj/coreenginedb/internal/blob"
)

const (
	fieldData        = "data"
	fieldContentType = "content_type"
)

type HashStore struct {
	client    *redis.Client
	namespace string
}

// New wraps client. Every key is stored under namespace + ":" + key.
func New(client *redis.Client, namespace string) *HashStore {
	return &HashStore{client: client, namespace: namespace}
}

func (s *HashStore) redisKey(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}

func (s *HashStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.HGet(ctx, s.redisKey(key), fieldData).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (s *HashStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := blob.ValidateKey(key); err != nil {
		return err
	}
	err := s.client.HSet(ctx, s.redisKey(key), fieldData, data, fieldContentType, contentType).Err()
	if err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}
	return nil
}

// List scans with a MATCH pattern; SCAN order is hash-slot order, not lexical.
func (s *HashStore) List(ctx context.Context, prefix string, limit int) ([]string, error) {
	pattern := escapeGlob(s.redisKey(prefix)) + "*"
	strip := len(s.redisKey(""))

	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[strip:])
		if limit > 0 && len(keys) >= limit {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	return keys, nil
}

func (s *HashStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func escapeGlob(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}

var _ blob.Store = (*HashStore)(nil)

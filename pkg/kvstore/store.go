// Package kvstore 定义了可注入的键值存储能力，以及 Redis 与内存两种实现。
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 表示键不存在或已过期。
var ErrNotFound = errors.New("kvstore: key not found")

// Store 是键值存储能力。ttl 为 0 表示不过期。
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

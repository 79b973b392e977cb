package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/shouni/igen-gallery/pkg/domain"
)

const defaultRedisPrefix = "igen:"

// Redis は文字列キーに値を保存する Store です。
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis は既存のクライアントを使う Redis を返します。prefix が空の場合は "igen:" を使います。
func NewRedis(client *redis.Client, prefix string) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}, nil
}

func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, wrapStorage("load", key, err)
	}
	return v, nil
}

func (r *Redis) Save(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, data, 0).Err(); err != nil {
		return wrapStorage("save", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return wrapStorage("delete", key, err)
	}
	return nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dailyyoga/warmcache/cache"
	goredis "github.com/redis/go-redis/v9"
)

// Decoder decodes a raw redis value
type Decoder[V any] func(data []byte) (V, error)

// JSON decodes values stored as JSON documents
func JSON[V any](data []byte) (V, error) {
	var v V
	err := json.Unmarshal(data, &v)
	return v, err
}

// KeySource loads a cache value from a single string key
type KeySource[V any] struct {
	rdb    Redis
	key    string
	decode Decoder[V]
}

var _ cache.Source[int] = (*KeySource[int])(nil)

// NewKeySource returns a source reading key with GET. A nil decode uses JSON.
func NewKeySource[V any](rdb Redis, key string, decode Decoder[V]) *KeySource[V] {
	if decode == nil {
		decode = JSON[V]
	}
	return &KeySource[V]{rdb: rdb, key: key, decode: decode}
}

// Refresh reads and decodes the key. A missing key is an ErrKeyNotFound error.
func (s *KeySource[V]) Refresh(ctx context.Context) (V, error) {
	var zero V
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return zero, ErrMissingKey(s.key)
	}
	if err != nil {
		return zero, err
	}

	v, err := s.decode(data)
	if err != nil {
		return zero, ErrDecode(s.key, err)
	}
	return v, nil
}

// HashSource returns a source reading every field of a hash with HGETALL.
// A missing key is an ErrKeyNotFound error.
func HashSource(rdb Redis, key string) cache.Source[map[string]string] {
	return cache.SourceFunc[map[string]string](func(ctx context.Context) (map[string]string, error) {
		fields, err := rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			return nil, ErrMissingKey(key)
		}
		return fields, nil
	})
}

package db

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisProvider implements DatabaseProvider on a Redis server, for
// nodes that keep chain data in a shared cache tier instead of on local
// disk. It does not implement IterableProvider; SCAN has no ordering
// guarantee.
type RedisProvider struct {
	client *redis.Client
}

// redisKey renders a store key for Redis so redis-cli stays usable.
// Block keys carry a 4-byte big-endian number after their prefix and
// are rendered with the number in decimal; every other key is printable
// already and passes through.
func redisKey(key []byte) string {
	const blockPrefix = "blk:"
	s := string(key)
	if strings.HasPrefix(s, blockPrefix) && len(key) == len(blockPrefix)+4 {
		number := binary.BigEndian.Uint32(key[len(blockPrefix):])
		return fmt.Sprintf("%s%d", blockPrefix, number)
	}
	return s
}

// NewRedisProvider connects to the Redis server at addr
func NewRedisProvider(addr string) (DatabaseProvider, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisProvider{client: client}, nil
}

func (p *RedisProvider) Get(key []byte) ([]byte, error) {
	value, err := p.client.Get(context.Background(), redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (p *RedisProvider) Put(key, value []byte) error {
	return p.client.Set(context.Background(), redisKey(key), value, 0).Err()
}

func (p *RedisProvider) Delete(key []byte) error {
	return p.client.Del(context.Background(), redisKey(key)).Err()
}

func (p *RedisProvider) Has(key []byte) (bool, error) {
	count, err := p.client.Exists(context.Background(), redisKey(key)).Result()
	return count > 0, err
}

// Close closes the client connection pool
func (p *RedisProvider) Close() error {
	return p.client.Close()
}

// Batch returns a new batch backed by a MULTI/EXEC pipeline
func (p *RedisProvider) Batch() DatabaseBatch {
	return &redisBatch{client: p.client, pipe: p.client.TxPipeline()}
}

type redisBatch struct {
	client *redis.Client
	pipe   redis.Pipeliner
}

func (b *redisBatch) Put(key, value []byte) {
	b.pipe.Set(context.Background(), redisKey(key), value, 0)
}

func (b *redisBatch) Delete(key []byte) {
	b.pipe.Del(context.Background(), redisKey(key))
}

// Write sends the queued commands as one MULTI/EXEC
func (b *redisBatch) Write() error {
	_, err := b.pipe.Exec(context.Background())
	return err
}

func (b *redisBatch) Reset() {
	b.pipe.Discard()
	b.pipe = b.client.TxPipeline()
}

func (b *redisBatch) Close() {
	b.pipe.Discard()
}

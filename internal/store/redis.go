package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps each table in one hash keyed by row id. It has no
// transactions, so Store.Atomic runs directly against it.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(table Table) string {
	return b.prefix + string(table)
}

func (b *RedisBackend) Rows(ctx context.Context, table Table) ([]Row, error) {
	fields, err := b.client.HGetAll(ctx, b.key(table)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", table, err)
	}

	rows := make([]Row, 0, len(fields))
	for field, doc := range fields {
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("bad row id %q in %s: %w", field, table, err)
		}
		rows = append(rows, Row{ID: id, Data: []byte(doc)})
	}
	slices.SortFunc(rows, func(a, b Row) int { return a.ID - b.ID })
	return rows, nil
}

func (b *RedisBackend) Get(ctx context.Context, table Table, id int) ([]byte, error) {
	doc, err := b.client.HGet(ctx, b.key(table), strconv.Itoa(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hget %s %d: %w", table, id, err)
	}
	return doc, nil
}

func (b *RedisBackend) NextID(ctx context.Context, table Table) (int, error) {
	fields, err := b.client.HKeys(ctx, b.key(table)).Result()
	if err != nil {
		return 0, fmt.Errorf("hkeys %s: %w", table, err)
	}
	next := 0
	for _, field := range fields {
		id, err := strconv.Atoi(field)
		if err != nil {
			return 0, fmt.Errorf("bad row id %q in %s: %w", field, table, err)
		}
		next = max(next, id+1)
	}
	return next, nil
}

func (b *RedisBackend) Put(ctx context.Context, table Table, id int, doc []byte) error {
	return b.client.HSet(ctx, b.key(table), strconv.Itoa(id), doc).Err()
}

func (b *RedisBackend) Remove(ctx context.Context, table Table, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	fields := make([]string, len(ids))
	for i, id := range ids {
		fields[i] = strconv.Itoa(id)
	}
	return b.client.HDel(ctx, b.key(table), fields...).Err()
}

func (b *RedisBackend) Truncate(ctx context.Context, table Table) error {
	return b.client.Del(ctx, b.key(table)).Err()
}

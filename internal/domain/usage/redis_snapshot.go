package usage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldProperties = "properties"
	fieldContacts   = "contacts"
	fieldUsers      = "users"
)

// RedisSnapshot keeps one hash per tenant at <prefix><tenantID>.
type RedisSnapshot struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisSnapshot(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisSnapshot {
	if prefix == "" {
		prefix = "usage:"
	}
	return &RedisSnapshot{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisSnapshot) key(tenantID string) string {
	return r.prefix + tenantID
}

func (r *RedisSnapshot) Usage(ctx context.Context, tenantID string) (Snapshot, error) {
	vals, err := r.client.HGetAll(ctx, r.key(tenantID)).Result()
	if err != nil {
		return Snapshot{}, fmt.Errorf("usage snapshot: %w", err)
	}
	if len(vals) == 0 {
		return Snapshot{}, ErrNoSnapshot
	}

	snap := Snapshot{Source: SourceSnapshot}
	for field, dst := range map[string]*int64{
		fieldProperties: &snap.Properties,
		fieldContacts:   &snap.Contacts,
		fieldUsers:      &snap.Users,
	} {
		raw, ok := vals[field]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Snapshot{}, fmt.Errorf("usage snapshot: field %s: %w", field, err)
		}
		*dst = n
	}
	return snap, nil
}

// Store replaces the tenant's snapshot. The CRUD layer calls it after
// creates and deletes.
func (r *RedisSnapshot) Store(ctx context.Context, tenantID string, snap Snapshot) error {
	key := r.key(tenantID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldProperties, snap.Properties,
			fieldContacts, snap.Contacts,
			fieldUsers, snap.Users,
		)
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	return err
}

// Invalidate drops the snapshot so the next read counts live rows.
func (r *RedisSnapshot) Invalidate(ctx context.Context, tenantID string) error {
	return r.client.Del(ctx, r.key(tenantID)).Err()
}

package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/aegis-iam/aegis/internal/authz"
)

// SnapshotSource loads a fully-populated authorization snapshot.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, userID int64) (authz.User, error)
}

// Resolver produces authorization snapshots for the enforcement middleware,
// with a short-lived Redis cache in front of the database. Staleness is
// bounded by the TTL; mutations for a specific user invalidate eagerly.
type Resolver struct {
	source SnapshotSource
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewResolver constructs a Resolver. A nil client disables caching.
func NewResolver(source SnapshotSource, client *redis.Client, ttl time.Duration) *Resolver {
	return &Resolver{source: source, client: client, ttl: ttl}
}

// Resolve returns the snapshot for the user, from cache when fresh.
func (r *Resolver) Resolve(ctx context.Context, userID int64) (authz.User, error) {
	if r.client == nil || r.ttl <= 0 {
		return r.source.LoadSnapshot(ctx, userID)
	}

	key := snapshotKey(userID)
	if data, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var cached authz.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		// Corrupt entry: drop it and fall through to the source.
		_ = r.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		return authz.User{}, fmt.Errorf("rbac: snapshot cache get: %w", err)
	}

	// Concurrent misses for the same user share one database load.
	result, err, _ := r.group.Do(key, func() (any, error) {
		snapshot, err := r.source.LoadSnapshot(ctx, userID)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(snapshot); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttl).Err()
		}
		return snapshot, nil
	})
	if err != nil {
		return authz.User{}, err
	}
	return result.(authz.User), nil
}

// Invalidate drops the cached snapshot for the user.
func (r *Resolver) Invalidate(ctx context.Context, userID int64) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, snapshotKey(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("rbac: snapshot cache del: %w", err)
	}
	return nil
}

func snapshotKey(userID int64) string {
	return "authz:snapshot:" + strconv.FormatInt(userID, 10)
}

package rbac_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/aegis-iam/aegis/internal/authz"
	"github.com/aegis-iam/aegis/internal/rbac"
	_ "github.com/aegis-iam/aegis/testing"
)

type countingSource struct {
	snapshot authz.User
	calls    int
}

func (c *countingSource) LoadSnapshot(ctx context.Context, userID int64) (authz.User, error) {
	c.calls++
	return c.snapshot, nil
}

func snapshotFor(userID int64) authz.User {
	return authz.User{
		ID:                userID,
		DirectPermissions: []authz.Permission{{Action: "read", Resource: "document"}},
	}
}

func TestResolveCachesSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingSource{snapshot: snapshotFor(7)}
	resolver := rbac.NewResolver(source, client, time.Minute)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, 7)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := resolver.Resolve(ctx, 7)
	if err != nil {
		t.Fatalf("resolve cached: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected one source load, got %d", source.calls)
	}
	if len(second.DirectPermissions) != len(first.DirectPermissions) {
		t.Fatalf("cached snapshot differs from source snapshot")
	}
}

func TestResolveExpiredCacheReloads(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingSource{snapshot: snapshotFor(7)}
	resolver := rbac.NewResolver(source, client, time.Second)
	ctx := context.Background()

	if _, err := resolver.Resolve(ctx, 7); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if _, err := resolver.Resolve(ctx, 7); err != nil {
		t.Fatalf("resolve after expiry: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected reload after TTL, got %d calls", source.calls)
	}
}

func TestInvalidateDropsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingSource{snapshot: snapshotFor(7)}
	resolver := rbac.NewResolver(source, client, time.Minute)
	ctx := context.Background()

	if _, err := resolver.Resolve(ctx, 7); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := resolver.Invalidate(ctx, 7); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := resolver.Resolve(ctx, 7); err != nil {
		t.Fatalf("resolve after invalidate: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected reload after invalidation, got %d calls", source.calls)
	}
}

func TestResolveDropsCorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	source := &countingSource{snapshot: snapshotFor(7)}
	resolver := rbac.NewResolver(source, client, time.Minute)
	ctx := context.Background()

	if err := mr.Set("authz:snapshot:"+strconv.Itoa(7), "{not json"); err != nil {
		t.Fatalf("seed corrupt entry: %v", err)
	}
	snapshot, err := resolver.Resolve(ctx, 7)
	if err != nil {
		t.Fatalf("resolve with corrupt cache: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected fallback to source, got %d calls", source.calls)
	}
	if len(snapshot.DirectPermissions) != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestResolveWithoutCache(t *testing.T) {
	source := &countingSource{snapshot: snapshotFor(7)}
	resolver := rbac.NewResolver(source, nil, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := resolver.Resolve(ctx, 7); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if source.calls != 3 {
		t.Fatalf("nil client must bypass caching, got %d calls", source.calls)
	}
}

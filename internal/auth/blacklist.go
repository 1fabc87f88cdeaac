package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist stores revoked token IDs in Redis until their natural expiry.
// Entries expire with the token, so the set never needs sweeping.
type Blacklist struct {
	client *redis.Client
}

// NewBlacklist constructs a Blacklist.
func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

// Revoke marks the token ID as revoked until the given expiry. Tokens that
// are already past expiry are ignored.
func (b *Blacklist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return errors.New("auth: token id required")
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("auth: blacklist set: %w", err)
	}
	return nil
}

// IsRevoked reports whether the token ID has been revoked.
func (b *Blacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if tokenID == "" {
		return false, nil
	}
	err := b.client.Get(ctx, blacklistKey(tokenID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("auth: blacklist get: %w", err)
	}
	return true, nil
}

func blacklistKey(tokenID string) string {
	return "blacklist:" + tokenID
}

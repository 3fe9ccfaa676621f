package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neopos/auth-service/internal/models"
)

const blacklistKeyPrefix = "blacklist:"

// Blacklist is the shared-store revocation set. Entries carry their own TTL
// so eviction is handled by Redis and Sweep has nothing to do; a
// multi-instance deployment shares this store with the brute-force counters.
type Blacklist struct {
	client *redis.Client
}

func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{client: client}
}

func (b *Blacklist) Add(ctx context.Context, jti string, expiresAt time.Time, reason, subjectID string) error {
	if jti == "" {
		return nil
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already expired, nothing to revoke.
		return nil
	}

	entry := models.BlacklistEntry{
		JTI:           jti,
		ExpiresAt:     expiresAt,
		Reason:        reason,
		SubjectID:     subjectID,
		BlacklistedAt: time.Now(),
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal blacklist entry: %w", err)
	}

	return b.client.Set(ctx, blacklistKeyPrefix+jti, payload, ttl).Err()
}

func (b *Blacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := b.client.Exists(ctx, blacklistKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

// Sweep is a no-op: per-key TTLs evict expired entries.
func (b *Blacklist) Sweep(_ context.Context) (int, error) {
	return 0, nil
}

func (b *Blacklist) RevokeAllForSubject(ctx context.Context, subjectID, reason string) (int, error) {
	var cursor uint64
	updated := 0

	for {
		keys, next, err := b.client.Scan(ctx, cursor, blacklistKeyPrefix+"*", 100).Result()
		if err != nil {
			return updated, fmt.Errorf("scan blacklist: %w", err)
		}

		for _, key := range keys {
			payload, err := b.client.Get(ctx, key).Result()
			if err == redis.Nil {
				continue
			} else if err != nil {
				return updated, err
			}

			var entry models.BlacklistEntry
			if err := json.Unmarshal([]byte(payload), &entry); err != nil {
				continue
			}
			if entry.SubjectID != subjectID {
				continue
			}

			entry.Reason = reason
			rewritten, err := json.Marshal(entry)
			if err != nil {
				return updated, fmt.Errorf("marshal blacklist entry: %w", err)
			}
			if err := b.client.Set(ctx, key, rewritten, redis.KeepTTL).Err(); err != nil {
				return updated, err
			}
			updated++
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return updated, nil
}

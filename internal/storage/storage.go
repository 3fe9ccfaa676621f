package storage

import (
	"context"
	"errors"
	"time"

	"github.com/neopos/auth-service/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// BlacklistStore tracks revoked token identifiers. A jti present here must
// never be accepted regardless of signature validity.
type BlacklistStore interface {
	// Add is an idempotent upsert keyed by jti.
	Add(ctx context.Context, jti string, expiresAt time.Time, reason, subjectID string) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	// Sweep removes entries whose expiry has passed and reports how many.
	Sweep(ctx context.Context) (int, error)
	// RevokeAllForSubject rewrites the reason of every entry belonging to
	// subjectID. Full scan, acceptable only at small scale.
	RevokeAllForSubject(ctx context.Context, subjectID, reason string) (int, error)
}

// CounterStore is the shared expiring key-value store behind the brute-force
// guard. Increment must be atomic; the TTL applies only when the key is created.
type CounterStore interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, keys ...string) error

	SetFlag(ctx context.Context, key, value string, ttl time.Duration) error
	GetFlag(ctx context.Context, key string) (string, bool, error)
	FlagTTL(ctx context.Context, key string) (time.Duration, error)

	// AddToSet records a distinct member under key and returns the new
	// cardinality. Used by the suspicious-activity monitor.
	AddToSet(ctx context.Context, key, member string, ttl time.Duration) (int64, error)
	// RecordTimestamp appends now to a sliding window under key and returns
	// the number of entries still inside the window.
	RecordTimestamp(ctx context.Context, key string, now time.Time, window time.Duration) (int64, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, email, passwordHash, shopName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/neopos/auth-service/internal/models"
)

// InMemoryBlacklist keeps revoked jtis in a process-local map. Suitable for a
// single-instance deployment only; multi-instance deployments must use the
// Redis-backed store so all instances share one revocation set.
type InMemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]models.BlacklistEntry
	log     *zap.SugaredLogger
}

func NewBlacklist(log *zap.SugaredLogger) *InMemoryBlacklist {
	return &InMemoryBlacklist{
		entries: make(map[string]models.BlacklistEntry),
		log:     log,
	}
}

func (b *InMemoryBlacklist) Add(_ context.Context, jti string, expiresAt time.Time, reason, subjectID string) error {
	if jti == "" {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[jti] = models.BlacklistEntry{
		JTI:           jti,
		ExpiresAt:     expiresAt,
		Reason:        reason,
		SubjectID:     subjectID,
		BlacklistedAt: time.Now(),
	}

	return nil
}

func (b *InMemoryBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, ok := b.entries[jti]
	return ok, nil
}

func (b *InMemoryBlacklist) Sweep(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	removed := 0
	for jti, entry := range b.entries {
		if entry.ExpiresAt.Before(now) {
			delete(b.entries, jti)
			removed++
		}
	}

	if removed > 0 {
		b.log.Infow("Swept expired blacklist entries", "removed", removed)
	}
	return removed, nil
}

func (b *InMemoryBlacklist) RevokeAllForSubject(_ context.Context, subjectID, reason string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	updated := 0
	for jti, entry := range b.entries {
		if entry.SubjectID == subjectID {
			entry.Reason = reason
			b.entries[jti] = entry
			updated++
		}
	}

	return updated, nil
}

func (b *InMemoryBlacklist) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.entries)
}

// StartSweeper runs Sweep every interval until ctx is cancelled.
func (b *InMemoryBlacklist) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := b.Sweep(ctx); err != nil {
					b.log.Errorw("blacklist sweep failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

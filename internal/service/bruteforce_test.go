package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/neopos/auth-service/internal/seclog"
	"github.com/neopos/auth-service/internal/storage/memory"
	"github.com/neopos/auth-service/internal/util"
)

func newGuardFixture(t *testing.T) *BruteForceGuard {
	t.Helper()

	cfg := &util.BruteForceConfig{
		IPWindow:          time.Hour,
		IPMaxAttempts:     100,
		LoginWindow:       15 * time.Minute,
		LoginMaxAttempts:  10,
		AccountLockTTL:    time.Hour,
		RapidRequestLimit: 30,
	}
	return NewBruteForceGuard(cfg, memory.NewCounterStore(), seclog.NewRecorder(zap.NewNop().Sugar()))
}

func TestCheck_LocksAccountAfterLimitExceeded(t *testing.T) {
	guard := newGuardFixture(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, guard.Check(ctx, "10.0.0.1", "owner@example.com"))
	}

	err := guard.Check(ctx, "10.0.0.1", "owner@example.com")
	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Contains(t, locked.Error(), "account is locked")
}

func TestCheck_LockCoversAllIPs(t *testing.T) {
	guard := newGuardFixture(t)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		_ = guard.Check(ctx, "10.0.0.1", "owner@example.com")
	}

	// The lock keys on the username alone; a fresh IP changes nothing.
	err := guard.Check(ctx, "192.168.1.50", "owner@example.com")
	var locked *AccountLockedError
	require.ErrorAs(t, err, &locked)
	assert.Greater(t, locked.Wait, time.Duration(0))
	assert.LessOrEqual(t, locked.Wait, time.Hour)
}

func TestCheck_IPThrottleAcrossUsernames(t *testing.T) {
	guard := newGuardFixture(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, guard.Check(ctx, "10.0.0.1", fmt.Sprintf("user%d@example.com", i)))
	}

	err := guard.Check(ctx, "10.0.0.1", "victim@example.com")
	assert.ErrorIs(t, err, ErrIPRateLimited)

	// Another IP is unaffected.
	assert.NoError(t, guard.Check(ctx, "10.0.0.2", "victim@example.com"))
}

func TestReset_ClearsCounters(t *testing.T) {
	guard := newGuardFixture(t)
	ctx := context.Background()

	for i := 0; i < 9; i++ {
		require.NoError(t, guard.Check(ctx, "10.0.0.1", "owner@example.com"))
	}
	require.NoError(t, guard.Reset(ctx, "10.0.0.1", "owner@example.com"))

	// Full budget available again.
	for i := 0; i < 10; i++ {
		require.NoError(t, guard.Check(ctx, "10.0.0.1", "owner@example.com"))
	}
	var locked *AccountLockedError
	assert.ErrorAs(t, guard.Check(ctx, "10.0.0.1", "owner@example.com"), &locked)
}

func TestReset_DoesNotLiftAccountLock(t *testing.T) {
	guard := newGuardFixture(t)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		_ = guard.Check(ctx, "10.0.0.1", "owner@example.com")
	}
	require.NoError(t, guard.Reset(ctx, "10.0.0.1", "owner@example.com"))

	var locked *AccountLockedError
	assert.ErrorAs(t, guard.Check(ctx, "10.0.0.1", "owner@example.com"), &locked)
}

func TestObserve_NeverBlocks(t *testing.T) {
	guard := newGuardFixture(t)
	ctx := context.Background()

	// Well beyond every monitor threshold; Observe stays advisory.
	for i := 0; i < 50; i++ {
		guard.Observe(ctx, "10.0.0.1", fmt.Sprintf("user%d@example.com", i))
	}

	assert.NoError(t, guard.Check(ctx, "10.0.0.1", "user0@example.com"))
}

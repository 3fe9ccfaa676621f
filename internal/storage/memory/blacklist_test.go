package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBlacklist_AddAndLookup(t *testing.T) {
	b := NewBlacklist(zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, "jti-1", time.Now().Add(time.Hour), "logout", "1"))

	revoked, err := b.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = b.IsBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestBlacklist_EmptyJTIIsIgnored(t *testing.T) {
	b := NewBlacklist(zap.NewNop().Sugar())

	require.NoError(t, b.Add(context.Background(), "", time.Now().Add(time.Hour), "logout", "1"))
	assert.Equal(t, 0, b.Size())
}

func TestBlacklist_SweepRemovesOnlyExpired(t *testing.T) {
	b := NewBlacklist(zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, "expired-1", time.Now().Add(-time.Minute), "logout", "1"))
	require.NoError(t, b.Add(ctx, "expired-2", time.Now().Add(-time.Hour), "rotated", "2"))
	require.NoError(t, b.Add(ctx, "live", time.Now().Add(time.Hour), "logout", "1"))

	removed, err := b.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, b.Size())

	revoked, err := b.IsBlacklisted(ctx, "live")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestBlacklist_RevokeAllForSubject(t *testing.T) {
	b := NewBlacklist(zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, b.Add(ctx, "a", time.Now().Add(time.Hour), "logout", "1"))
	require.NoError(t, b.Add(ctx, "b", time.Now().Add(time.Hour), "rotated", "1"))
	require.NoError(t, b.Add(ctx, "c", time.Now().Add(time.Hour), "logout", "2"))

	updated, err := b.RevokeAllForSubject(ctx, "1", "user_revoked")
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	// Entries stay blacklisted; only the recorded reason changes.
	assert.Equal(t, 3, b.Size())
	for _, jti := range []string{"a", "b", "c"} {
		revoked, err := b.IsBlacklisted(ctx, jti)
		require.NoError(t, err)
		assert.True(t, revoked)
	}
}

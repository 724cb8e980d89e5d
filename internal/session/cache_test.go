package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheAuthorize(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour)

	ok, err := c.IsAuthorized(ctx, "s1", "b1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Authorize(ctx, "s1", "b1"))

	ok, err = c.IsAuthorized(ctx, "s1", "b1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Authorization is scoped to the session and board pair.
	ok, err = c.IsAuthorized(ctx, "s2", "b1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.IsAuthorized(ctx, "s1", "b2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10 * time.Millisecond)

	require.NoError(t, c.Authorize(ctx, "s1", "b1"))
	time.Sleep(25 * time.Millisecond)

	ok, err := c.IsAuthorized(ctx, "s1", "b1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheRevoke(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour)

	require.NoError(t, c.Authorize(ctx, "s1", "b1"))
	require.NoError(t, c.Authorize(ctx, "s2", "b1"))
	require.NoError(t, c.Authorize(ctx, "s1", "b2"))

	require.NoError(t, c.Revoke(ctx, "b1"))

	for _, sid := range []string{"s1", "s2"} {
		ok, err := c.IsAuthorized(ctx, sid, "b1")
		require.NoError(t, err)
		assert.False(t, ok, "session %s should be revoked", sid)
	}

	// Other boards are untouched.
	ok, err := c.IsAuthorized(ctx, "s1", "b2")
	require.NoError(t, err)
	assert.True(t, ok)
}

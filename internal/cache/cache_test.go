package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/interviewbot/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis runs a throwaway Redis container for the duration of the test.
func startRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "redis")
	require.NoError(t, err)

	rc, err := cache.NewRedisCache(endpoint)
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })
	return rc
}

// testCache runs the behaviour both implementations must share. Subtests that
// wait for a TTL are skipped in short mode.
func testCache(t *testing.T, c cache.Cache) {
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, c.Ping(ctx))
	})

	t.Run("SetGet", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "test:key", []byte("hello"), 10*time.Second))

		val, found, err := c.Get(ctx, "test:key")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("hello"), val)
	})

	t.Run("GetMissing", func(t *testing.T) {
		val, found, err := c.Get(ctx, "nonexistent:key")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, val)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "del:key", []byte("bye"), 10*time.Second))
		require.NoError(t, c.Delete(ctx, "del:key"))
		assert.NoError(t, c.Delete(ctx, "del:key"), "deleting a missing key is not an error")

		_, found, err := c.Get(ctx, "del:key")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("SessionStatus", func(t *testing.T) {
		id := uuid.New()
		require.NoError(t, c.SetSessionStatus(ctx, id, []byte(`{"state":"joining"}`), time.Minute))
		require.NoError(t, c.SetSessionStatus(ctx, id, []byte(`{"state":"recording"}`), time.Minute))

		status, found, err := c.GetSessionStatus(ctx, id)
		require.NoError(t, err)
		assert.True(t, found)
		assert.JSONEq(t, `{"state":"recording"}`, string(status), "latest snapshot wins")

		raw, found, err := c.Get(ctx, cache.SessionStatusKey(id))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, status, raw)

		_, found, err = c.GetSessionStatus(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("IncrWithExpiry", func(t *testing.T) {
		key := cache.RateLimitKey("incr-" + uuid.NewString()[:8])
		for want := int64(1); want <= 3; want++ {
			got, err := c.IncrWithExpiry(ctx, key, 10*time.Second)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("TTLExpiry", func(t *testing.T) {
		if testing.Short() {
			t.Skip("waits for a TTL")
		}
		require.NoError(t, c.Set(ctx, "expiry:key", []byte("temp"), time.Second))
		key := cache.RateLimitKey("expiry-" + uuid.NewString()[:8])
		_, err := c.IncrWithExpiry(ctx, key, time.Second)
		require.NoError(t, err)

		time.Sleep(1500 * time.Millisecond)

		_, found, err := c.Get(ctx, "expiry:key")
		require.NoError(t, err)
		assert.False(t, found)

		val, err := c.IncrWithExpiry(ctx, key, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, int64(1), val, "window restarts after expiry")
	})
}

func TestRedisCache_Conformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	testCache(t, startRedis(t))
}

func TestMemoryCache_Conformance(t *testing.T) {
	testCache(t, cache.NewMemoryCache())
}

func TestNewRedisCache_InvalidURL(t *testing.T) {
	_, err := cache.NewRedisCache("http://not-redis")
	assert.Error(t, err)
}

// --- Cache Key Builders ---

func TestSessionStatusKey(t *testing.T) {
	sessionID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	assert.Equal(t, "session:22222222-2222-2222-2222-222222222222", cache.SessionStatusKey(sessionID))
}

func TestRateLimitKey(t *testing.T) {
	assert.Equal(t, "ratelimit:10.0.0.1", cache.RateLimitKey("10.0.0.1"))
}

func TestKeyBuilders_NonColliding(t *testing.T) {
	keys := map[string]bool{
		cache.SessionStatusKey(uuid.New()): true,
		cache.RateLimitKey("10.0.0.1"):     true,
	}
	assert.Len(t, keys, 2, "all keys should be unique")
}

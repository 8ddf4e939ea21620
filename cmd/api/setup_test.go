package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/secret-board/internal/config"
	"github.com/yourusername/secret-board/internal/jobs"
	"github.com/yourusername/secret-board/internal/logging"
	"github.com/yourusername/secret-board/internal/session"
	"github.com/yourusername/secret-board/internal/users"
)

func TestSetupBackendsMemory(t *testing.T) {
	cfg := &config.Config{
		StoreBackend:   config.BackendMemory,
		SessionBackend: config.BackendMemory,
		StoreTimeout:   time.Second,
	}

	b, err := setupBackends(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &users.MemoryStore{}, b.users)
	assert.IsType(t, &session.MemoryStore{}, b.sessions)
	assert.Nil(t, b.redis)
}

func TestSetupBackendsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		StoreBackend:   config.BackendRedis,
		SessionBackend: config.BackendRedis,
		RedisURL:       "redis://" + mr.Addr() + "/0",
		StoreTimeout:   time.Second,
	}

	b, err := setupBackends(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &users.RedisStore{}, b.users)
	assert.IsType(t, &session.RedisStore{}, b.sessions)

	u, err := b.users.Create(context.Background(), "alice", "hash")
	require.NoError(t, err)
	assert.True(t, mr.Exists("user:"+u.ID))
}

func TestSetupBackendsRedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &config.Config{
		StoreBackend:   config.BackendRedis,
		SessionBackend: config.BackendMemory,
		RedisURL:       "redis://" + addr + "/0",
		StoreTimeout:   200 * time.Millisecond,
	}

	_, err := setupBackends(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}

func TestSetupAuditDisabled(t *testing.T) {
	publisher, shutdown, err := setupAudit(&config.Config{}, logging.Discard())
	require.NoError(t, err)
	defer shutdown()
	assert.IsType(t, jobs.NopPublisher{}, publisher)
}

func TestSessionSecret(t *testing.T) {
	secret, err := sessionSecret(&config.Config{SessionSecret: "configured"}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, []byte("configured"), secret)

	first, err := sessionSecret(&config.Config{}, logging.Discard())
	require.NoError(t, err)
	second, err := sessionSecret(&config.Config{}, logging.Discard())
	require.NoError(t, err)
	assert.Len(t, first, 32)
	assert.NotEqual(t, first, second)
}

package main

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-forecast-pipeline/internal/config"
	"go-forecast-pipeline/internal/session"
)

func TestNewSessionStoreMemory(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{Session: config.SessionConfig{Backend: "memory", Size: 4, TTL: time.Hour}}

	s, closeFn, err := newSessionStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &session.MemoryStore{}, s)
}

func TestNewSessionStoreRedis(t *testing.T) {
	logger, _ := test.NewNullLogger()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := &config.Config{
		Session: config.SessionConfig{Backend: "redis", TTL: time.Hour},
		Redis:   config.RedisConfig{Host: mr.Host(), Port: port, KeyPrefix: "test:"},
	}
	s, closeFn, err := newSessionStore(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer closeFn()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, &session.Session{ID: "abc"}))
	assert.True(t, mr.Exists("test:abc"))
}

func TestNewSessionStoreRedisUnreachable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.Close()

	cfg := &config.Config{
		Session: config.SessionConfig{Backend: "redis", TTL: time.Hour},
		Redis:   config.RedisConfig{Host: "127.0.0.1", Port: port},
	}
	_, _, err = newSessionStore(context.Background(), cfg, logger)
	assert.Error(t, err)
}

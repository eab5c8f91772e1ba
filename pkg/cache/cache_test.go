package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-scheduling-api/pkg/config"
)

func TestRedisOptionsFromFields(t *testing.T) {
	opts, err := RedisOptions(config.RedisConfig{Host: "cache", Port: 6380, DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
}

func TestRedisOptionsURLWins(t *testing.T) {
	opts, err := RedisOptions(config.RedisConfig{URL: "redis://:pw@redis.internal:6379/3", Host: "ignored", Port: 1})
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = RedisOptions(config.RedisConfig{URL: "http://nope"})
	assert.Error(t, err)
}

func TestMemoryExpires(t *testing.T) {
	store := NewMemory(time.Minute)
	store.Set("k", "v", 10*time.Millisecond)
	_, ok := store.Get("k")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = store.Get("k")
	assert.False(t, ok)
}

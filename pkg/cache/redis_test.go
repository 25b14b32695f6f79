package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-connect-api/pkg/config"
)

func TestOptionsFromParts(t *testing.T) {
	opts, err := Options(config.RedisConfig{Host: "cache", Port: 6380, Password: "pw", DB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)
}

func TestOptionsPrefersURL(t *testing.T) {
	opts, err := Options(config.RedisConfig{URL: "redis://:secret@redis.internal:6379/3", Host: "ignored", Port: 1})
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
}

func TestOptionsRejectsBadURL(t *testing.T) {
	_, err := Options(config.RedisConfig{URL: "http://not-redis"})
	assert.Error(t, err)
}

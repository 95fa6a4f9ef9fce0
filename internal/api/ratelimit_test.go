package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerKey(t *testing.T) {
	l := newRateLimiter(RateLimitConfig{RequestsPerMinute: 1, Burst: 2, EntryTTL: time.Minute, CleanupInterval: time.Minute})

	assert.True(t, l.allow("u1"))
	assert.True(t, l.allow("u1"))
	assert.False(t, l.allow("u1"))
	assert.True(t, l.allow("u2"))
}

func TestDisabledRateLimiterAllowsEverything(t *testing.T) {
	l := newRateLimiter(RateLimitConfig{})
	assert.Nil(t, l)
	for i := 0; i < 10; i++ {
		assert.True(t, l.allow("u1"))
	}
}

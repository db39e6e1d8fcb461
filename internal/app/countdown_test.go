package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radrush-quiz-service/internal/clock"
)

func TestCountdownExpiresOnce(t *testing.T) {
	fake := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	c := NewCountdown(fake)
	fired := 0

	c.Start(20*time.Second, func() { fired++ })
	fake.Advance(5 * time.Second)
	assert.Equal(t, 15*time.Second, c.Remaining())
	assert.True(t, c.Active())

	fake.Advance(15 * time.Second)
	require.Equal(t, 1, fired)
	assert.Equal(t, time.Duration(0), c.Remaining())
	assert.False(t, c.Active())
	assert.True(t, c.Expired())

	fake.Advance(time.Minute)
	assert.Equal(t, 1, fired)
	assert.Equal(t, time.Duration(0), c.Remaining())
}

func TestCountdownStopFreezes(t *testing.T) {
	fake := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	c := NewCountdown(fake)
	fired := false

	c.Start(20*time.Second, func() { fired = true })
	fake.Advance(7 * time.Second)
	left := c.Stop()
	fake.Advance(30 * time.Second)

	assert.Equal(t, 13*time.Second, left)
	assert.Equal(t, 13*time.Second, c.Remaining())
	assert.False(t, fired)
	assert.Zero(t, fake.Pending())
}

func TestCountdownRestartDropsPreviousExpiry(t *testing.T) {
	fake := clock.NewFake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	c := NewCountdown(fake)
	var first, second int

	c.Start(20*time.Second, func() { first++ })
	fake.Advance(10 * time.Second)
	c.Start(20*time.Second, func() { second++ })
	fake.Advance(15 * time.Second)

	assert.Zero(t, first)
	assert.Zero(t, second)
	assert.Equal(t, 5*time.Second, c.Remaining())

	fake.Advance(5 * time.Second)
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}

package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityMinInterval(t *testing.T) {
	assert.Equal(t, 1*time.Second, PriorityHigh.MinInterval())
	assert.Equal(t, 2*time.Second, PriorityMedium.MinInterval())
	assert.Equal(t, 3*time.Second, PriorityLow.MinInterval())
	assert.Equal(t, 2*time.Second, Priority("bogus").MinInterval())
}

func TestLimiter_FirstRequestAllowed(t *testing.T) {
	l := NewLimiter(Config{})

	d := l.Check("user-1", PriorityHigh)
	assert.True(t, d.Allowed)
	assert.Zero(t, d.RetryAfter)
}

func TestLimiter_UserIntervalDenied(t *testing.T) {
	l := NewLimiter(Config{})

	require.True(t, l.Check("user-1", PriorityMedium).Allowed)

	d := l.Check("user-1", PriorityMedium)
	require.False(t, d.Allowed)
	assert.Equal(t, "user_interval", d.Reason)
	assert.Greater(t, d.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, d.RetryAfter, 2*time.Second)
}

func TestLimiter_IndependentUsers(t *testing.T) {
	l := NewLimiter(Config{})

	require.True(t, l.Check("user-1", PriorityHigh).Allowed)
	assert.True(t, l.Check("user-2", PriorityHigh).Allowed,
		"one user's spacing must not affect another")
}

func TestLimiter_ProgressiveCooldown(t *testing.T) {
	l := NewLimiter(Config{})

	require.True(t, l.Check("user-1", PriorityHigh).Allowed)

	// First denial records an offense and arms the 30s cooldown.
	d := l.Check("user-1", PriorityHigh)
	require.False(t, d.Allowed)
	assert.Equal(t, 1, l.Offenses("user-1"))

	// The next attempt lands inside the cooldown window.
	d = l.Check("user-1", PriorityHigh)
	require.False(t, d.Allowed)
	assert.Equal(t, "cooldown", d.Reason)
	assert.Greater(t, d.RetryAfter, 25*time.Second)
	assert.LessOrEqual(t, d.RetryAfter, 30*time.Second)
}

func TestLimiter_CooldownSteps(t *testing.T) {
	l := NewLimiter(Config{})
	now := time.Now()
	u := &userState{}

	expected := []time.Duration{
		30 * time.Second, 60 * time.Second, 120 * time.Second,
		300 * time.Second, 300 * time.Second,
	}
	for i, want := range expected {
		l.recordOffense(u, "user-1", now)
		assert.Equal(t, want, u.cooldownUntil.Sub(now), "offense %d", i+1)
	}
}

func TestLimiter_OffenseDecay(t *testing.T) {
	l := NewLimiter(Config{})
	now := time.Now()

	u := &userState{offenses: 3, lastActivity: now.Add(-25 * time.Minute)}
	l.decayOffenses(u, now)
	assert.Equal(t, 1, u.offenses, "two full decay intervals forgive two offenses")

	u = &userState{offenses: 1, lastActivity: now.Add(-5 * time.Minute)}
	l.decayOffenses(u, now)
	assert.Equal(t, 1, u.offenses, "partial interval forgives nothing")

	u = &userState{offenses: 2, lastActivity: now.Add(-2 * time.Hour)}
	l.decayOffenses(u, now)
	assert.Equal(t, 0, u.offenses, "decay never goes negative")
}

func TestLimiter_GlobalQuota(t *testing.T) {
	l := NewLimiter(Config{GlobalPerMinute: 2})

	require.True(t, l.Check("user-1", PriorityHigh).Allowed)
	require.True(t, l.Check("user-2", PriorityHigh).Allowed)

	d := l.Check("user-3", PriorityHigh)
	require.False(t, d.Allowed)
	assert.Equal(t, "global_quota", d.Reason)
	assert.Greater(t, d.RetryAfter, time.Duration(0))

	// Global denial is not an offense against the user.
	assert.Equal(t, 0, l.Offenses("user-3"))
}

func TestLimiter_DenyDoesNotChargeGlobalQuota(t *testing.T) {
	l := NewLimiter(Config{GlobalPerMinute: 2})

	require.True(t, l.Check("user-1", PriorityHigh).Allowed)

	// A per-user denial must leave the remaining global token intact.
	require.False(t, l.Check("user-1", PriorityHigh).Allowed)
	assert.True(t, l.Check("user-2", PriorityHigh).Allowed)
}

func TestLimiter_Stats(t *testing.T) {
	l := NewLimiter(Config{})

	assert.Equal(t, Stats{}, l.Stats())

	require.True(t, l.Check("user-1", PriorityHigh).Allowed)
	require.True(t, l.Check("user-2", PriorityHigh).Allowed)

	// Second burst from user-1 arms a cooldown; user-2 stays clean.
	require.False(t, l.Check("user-1", PriorityHigh).Allowed)

	s := l.Stats()
	assert.Equal(t, 2, s.TrackedUsers)
	assert.Equal(t, 1, s.ActiveCooldowns)
}

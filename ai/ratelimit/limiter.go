// Package ratelimit apportions outbound AI requests across users and the
// shared provider quota.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Priority orders requests by how quickly a user may repeat them.
type Priority string

const (
	PriorityHigh   Priority = "high"   // trivia answers, operator interactions
	PriorityMedium Priority = "medium" // catalog questions, chat responses
	PriorityLow    Priority = "low"    // auto-actions, background refreshes
)

// MinInterval returns the per-user minimum spacing between requests.
func (p Priority) MinInterval() time.Duration {
	switch p {
	case PriorityHigh:
		return 1 * time.Second
	case PriorityLow:
		return 3 * time.Second
	default:
		return 2 * time.Second
	}
}

// Progressive cooldowns by offense count. The last value applies to every
// offense past the third.
var cooldownSteps = []time.Duration{
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
	300 * time.Second,
}

const offenseDecayInterval = 10 * time.Minute

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string, retryAfter time.Duration) Decision {
	return Decision{Reason: reason, RetryAfter: retryAfter}
}

type userState struct {
	lastRequest   time.Time
	offenses      int
	cooldownUntil time.Time
	lastActivity  time.Time
}

// Config configures the limiter.
type Config struct {
	// GlobalPerMinute is the shared provider quota. Zero means 60.
	GlobalPerMinute int
}

// Limiter enforces per-user spacing with progressive cooldowns and a global
// provider quota. The mutex is never held across a blocking call.
type Limiter struct {
	mu     sync.Mutex
	users  map[string]*userState
	global *rate.Limiter
}

// NewLimiter creates a limiter.
func NewLimiter(cfg Config) *Limiter {
	perMinute := cfg.GlobalPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	return &Limiter{
		users:  make(map[string]*userState),
		global: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
	}
}

// Check decides whether a request may proceed. An allowed request charges the
// user's spacing window and the global quota; a denied request charges
// neither, but does advance the user's offense count.
func (l *Limiter) Check(userID string, priority Priority) Decision {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	u, ok := l.users[userID]
	if !ok {
		u = &userState{}
		l.users[userID] = u
	}

	l.decayOffenses(u, now)

	if now.Before(u.cooldownUntil) {
		return deny("cooldown", u.cooldownUntil.Sub(now))
	}

	if minInterval := priority.MinInterval(); !u.lastRequest.IsZero() {
		if elapsed := now.Sub(u.lastRequest); elapsed < minInterval {
			l.recordOffense(u, userID, now)
			return deny("user_interval", minInterval-elapsed)
		}
	}

	// Global quota last: a per-user denial must not consume a shared token.
	reservation := l.global.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return deny("global_quota", delay)
	}

	u.lastRequest = now
	u.lastActivity = now
	return allow()
}

// recordOffense bumps the offense count and arms the next cooldown.
// Lock must be held.
func (l *Limiter) recordOffense(u *userState, userID string, now time.Time) {
	u.offenses++
	u.lastActivity = now

	step := u.offenses
	if step > len(cooldownSteps) {
		step = len(cooldownSteps)
	}
	u.cooldownUntil = now.Add(cooldownSteps[step-1])

	slog.Debug("rate limiter offense recorded",
		"user_id", userID,
		"offenses", u.offenses,
		"cooldown", cooldownSteps[step-1],
	)
}

// decayOffenses forgives one offense per ten minutes of compliance.
// Lock must be held.
func (l *Limiter) decayOffenses(u *userState, now time.Time) {
	if u.offenses == 0 || u.lastActivity.IsZero() {
		return
	}
	forgiven := int(now.Sub(u.lastActivity) / offenseDecayInterval)
	if forgiven <= 0 {
		return
	}
	if forgiven > u.offenses {
		forgiven = u.offenses
	}
	u.offenses -= forgiven
	u.lastActivity = u.lastActivity.Add(time.Duration(forgiven) * offenseDecayInterval)
}

// Stats is a point-in-time summary for the status surface.
type Stats struct {
	TrackedUsers    int
	ActiveCooldowns int
}

// Stats reports how many users the limiter tracks and how many are serving a
// cooldown right now.
func (l *Limiter) Stats() Stats {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Stats{TrackedUsers: len(l.users)}
	for _, u := range l.users {
		if now.Before(u.cooldownUntil) {
			s.ActiveCooldowns++
		}
	}
	return s
}

// Offenses reports the current offense count for a user.
func (l *Limiter) Offenses(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if u, ok := l.users[userID]; ok {
		l.decayOffenses(u, time.Now())
		return u.offenses
	}
	return 0
}

// Reset clears all per-user state. Used by tests and the status command.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users = make(map[string]*userState)
}

// Audience Insights - Media Engagement Analytics and Nielsen Ratings Reporting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/audience-insights

package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/audience-insights/internal/metrics"
)

// maxLockoutDuration caps exponential backoff.
const maxLockoutDuration = 24 * time.Hour

// lockoutEntry tracks failed login attempts for one email.
type lockoutEntry struct {
	failedAttempts int
	lockoutCount   int // for exponential backoff
	lastAttempt    time.Time
	lockedUntil    time.Time
}

// Lockout locks an email out of login after repeated failures. State is kept
// in memory, so a restart clears it.
type Lockout struct {
	maxAttempts int
	duration    time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*lockoutEntry
}

// NewLockout returns a Lockout allowing maxAttempts failures before locking
// for duration. maxAttempts <= 0 disables it.
func NewLockout(maxAttempts int, duration time.Duration) *Lockout {
	return &Lockout{
		maxAttempts: maxAttempts,
		duration:    duration,
		now:         time.Now,
		entries:     make(map[string]*lockoutEntry),
	}
}

// Locked reports whether email is locked out and for how much longer.
func (l *Lockout) Locked(email string) (bool, time.Duration) {
	if l == nil || l.maxAttempts <= 0 {
		return false, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[strings.ToLower(email)]
	if !ok {
		return false, 0
	}
	now := l.now()
	if now.Before(e.lockedUntil) {
		return true, e.lockedUntil.Sub(now)
	}
	return false, 0
}

// Fail records a failed login and reports whether it locked the email.
func (l *Lockout) Fail(email string) bool {
	if l == nil || l.maxAttempts <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	key := strings.ToLower(email)
	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &lockoutEntry{}
		l.entries[key] = e
	}
	// Failures older than a lockout period no longer count.
	if now.Sub(e.lastAttempt) > l.duration {
		e.failedAttempts = 0
	}
	e.failedAttempts++
	e.lastAttempt = now

	if e.failedAttempts < l.maxAttempts {
		return false
	}
	e.lockedUntil = now.Add(backoff(l.duration, e.lockoutCount))
	e.lockoutCount++
	e.failedAttempts = 0
	metrics.RecordLockout()
	return true
}

// Succeed clears the failure history of email.
func (l *Lockout) Succeed(email string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, strings.ToLower(email))
}

// Cleanup drops entries that are neither locked nor recently failed.
func (l *Lockout) Cleanup() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for k, e := range l.entries {
		if now.After(e.lockedUntil) && now.Sub(e.lastAttempt) > maxLockoutDuration {
			delete(l.entries, k)
			removed++
		}
	}
	return removed
}

// backoff doubles base for every earlier lockout, capped at maxLockoutDuration.
func backoff(base time.Duration, lockoutCount int) time.Duration {
	d := base
	for i := 0; i < lockoutCount; i++ {
		d *= 2
		if d >= maxLockoutDuration {
			return maxLockoutDuration
		}
	}
	return d
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package market

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/gavelhouse/gavelhouse/internal/clock"
	"github.com/gavelhouse/gavelhouse/internal/observability"
)

// DefaultSweepPeriod is how often expired sessions are swept per site.
const DefaultSweepPeriod = 5 * time.Minute

// Sweeper drives the periodic expired-session sweep for one site. Each
// cycle arms a fresh one-shot alarm after the sweep completes, so a slow
// sweep delays the next cycle instead of stacking on top of it; an
// in-flight guard additionally drops any ring that arrives while a sweep
// is still running.
type Sweeper struct {
	siteID   ulid.ULID
	sessions *SessionManager
	clock    clock.AlarmClock
	period   time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	alarm   clock.Alarm
	stopped bool

	sweeping atomic.Bool
}

// NewSweeper creates a Sweeper for the site. A non-positive period
// defaults to DefaultSweepPeriod; a nil logger to slog.Default().
func NewSweeper(siteID ulid.ULID, sessions *SessionManager, alarmClock clock.AlarmClock, period time.Duration, logger *slog.Logger) *Sweeper {
	if period <= 0 {
		period = DefaultSweepPeriod
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		siteID:   siteID,
		sessions: sessions,
		clock:    alarmClock,
		period:   period,
		logger:   logger,
	}
}

// Start arms the first alarm. Starting an already-started or stopped
// sweeper is a no-op.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.alarm != nil {
		return
	}
	s.alarm = s.clock.InstantiateAlarm(s.period, s.ring)
}

// Stop cancels the pending alarm and prevents re-arming. A sweep already
// in flight finishes on its own.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.alarm != nil {
		s.alarm.Stop()
		s.alarm = nil
	}
}

func (s *Sweeper) ring() {
	if !s.sweeping.CompareAndSwap(false, true) {
		s.rearm()
		return
	}
	defer s.sweeping.Store(false)

	now := s.clock.Now()
	n, err := s.sessions.SweepExpired(context.Background(), s.siteID, now)
	if err != nil {
		s.logger.Error("session sweep failed",
			"site_id", s.siteID.String(),
			"error", err,
		)
	} else if n > 0 {
		observability.RecordSessionsSwept(n)
		s.logger.Debug("session sweep completed",
			"site_id", s.siteID.String(),
			"removed", n,
		)
	}

	s.rearm()
}

func (s *Sweeper) rearm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.alarm = s.clock.InstantiateAlarm(s.period, s.ring)
}

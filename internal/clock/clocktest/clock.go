// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

// Package clocktest provides a manually driven clock for deterministic
// time in tests.
package clocktest

import (
	"sync"
	"time"

	"github.com/gavelhouse/gavelhouse/internal/clock"
)

// Manual is an AlarmClock whose time only moves when told to. Alarms ring
// synchronously from Advance or Ring, on the calling goroutine.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	alarms []*manualAlarm
}

// NewManual creates a Manual clock starting at the given instant.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t without ringing alarms.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Advance moves the clock forward by d and rings every alarm whose
// deadline has passed, in scheduling order.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	due := m.takeDueLocked()
	m.mu.Unlock()

	for _, a := range due {
		a.ring()
	}
}

// Ring fires every pending alarm regardless of deadline.
func (m *Manual) Ring() {
	m.mu.Lock()
	due := m.alarms
	m.alarms = nil
	m.mu.Unlock()

	for _, a := range due {
		a.ring()
	}
}

// Pending reports the number of armed alarms.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alarms)
}

// InstantiateAlarm schedules ring to run once the clock advances past d.
func (m *Manual) InstantiateAlarm(d time.Duration, ring func()) clock.Alarm {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &manualAlarm{owner: m, at: m.now.Add(d), fn: ring}
	m.alarms = append(m.alarms, a)
	return a
}

// InstantiateAlarmClock returns the manual clock itself for any timezone,
// satisfying clock.Factory so a Manual can stand in for the system factory.
func (m *Manual) InstantiateAlarmClock(int) clock.AlarmClock {
	return m
}

func (m *Manual) takeDueLocked() []*manualAlarm {
	var due []*manualAlarm
	remaining := m.alarms[:0]
	for _, a := range m.alarms {
		if !a.at.After(m.now) {
			due = append(due, a)
		} else {
			remaining = append(remaining, a)
		}
	}
	m.alarms = remaining
	return due
}

type manualAlarm struct {
	owner   *Manual
	at      time.Time
	fn      func()
	mu      sync.Mutex
	stopped bool
	fired   bool
}

func (a *manualAlarm) ring() {
	a.mu.Lock()
	if a.stopped || a.fired {
		a.mu.Unlock()
		return
	}
	a.fired = true
	fn := a.fn
	a.mu.Unlock()
	fn()
}

func (a *manualAlarm) Stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fired || a.stopped {
		return false
	}
	a.stopped = true
	return true
}

// Compile-time interface checks.
var (
	_ clock.AlarmClock = (*Manual)(nil)
	_ clock.Factory    = (*Manual)(nil)
)

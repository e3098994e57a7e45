// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

package clock

import "time"

// SystemFactory produces alarm clocks backed by the host's wall clock.
type SystemFactory struct{}

// NewSystemFactory creates a SystemFactory.
func NewSystemFactory() *SystemFactory {
	return &SystemFactory{}
}

// InstantiateAlarmClock returns a wall-clock AlarmClock shifted by the
// given UTC offset in whole hours.
func (f *SystemFactory) InstantiateAlarmClock(timezoneOffset int) AlarmClock {
	return &systemClock{offset: time.Duration(timezoneOffset) * time.Hour}
}

type systemClock struct {
	offset time.Duration
}

func (c *systemClock) Now() time.Time {
	return time.Now().UTC().Add(c.offset)
}

func (c *systemClock) InstantiateAlarm(d time.Duration, ring func()) Alarm {
	return &systemAlarm{timer: time.AfterFunc(d, ring)}
}

type systemAlarm struct {
	timer *time.Timer
}

func (a *systemAlarm) Stop() bool {
	return a.timer.Stop()
}

// Compile-time interface checks.
var (
	_ Factory    = (*SystemFactory)(nil)
	_ AlarmClock = (*systemClock)(nil)
)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gavelhouse Contributors

// Package clock defines the time and alarm collaborator consumed by the
// auction core. The core never reads the wall clock directly: every site
// observes time through an AlarmClock pinned to its timezone, and periodic
// work is driven by one-shot alarms that the caller re-arms after each
// cycle.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Alarm is a single scheduled callback.
type Alarm interface {
	// Stop cancels the alarm. It reports whether the cancellation
	// prevented the callback from running.
	Stop() bool
}

// AlarmClock combines a timezone-local clock with one-shot alarm
// scheduling.
type AlarmClock interface {
	Clock

	// InstantiateAlarm schedules ring to run once after d. The caller
	// re-arms a fresh alarm per cycle; there is no recurring mode.
	InstantiateAlarm(d time.Duration, ring func()) Alarm
}

// Factory produces alarm clocks for a site's UTC offset (whole hours).
type Factory interface {
	InstantiateAlarmClock(timezoneOffset int) AlarmClock
}

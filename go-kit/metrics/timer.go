package metrics

import (
	"time"

	kitmetrics "github.com/go-kit/kit/metrics"

	"github.com/reqmetrics/x/clock"
)

// Durations are observed in whole milliseconds unless stated otherwise.
const defaultTimingUnit = time.Millisecond

// DurationTimer acts as a stopwatch, sending observations to a wrapped
// histogram.
type DurationTimer struct {
	h     kitmetrics.Histogram
	clock clock.Clock
	t     time.Time
	d     time.Duration
}

// NewDurationTimer wraps the given histogram and records the current time.
func NewDurationTimer(h kitmetrics.Histogram) *DurationTimer {
	return NewDurationTimerWithClock(h, clock.Default)
}

// NewDurationTimerWithClock is NewDurationTimer reading time from c.
func NewDurationTimerWithClock(h kitmetrics.Histogram, c clock.Clock) *DurationTimer {
	return &DurationTimer{
		h:     h,
		clock: c,
		t:     c.Now(),
		d:     defaultTimingUnit,
	}
}

// ObserveDuration observes the number of milliseconds since the timer was
// created.
func (t *DurationTimer) ObserveDuration() {
	measureSince(t.h, t.t, t.clock.Now(), t.d)
}

// MeasureSince observes the number of milliseconds since t0, e.g.
// defer MeasureSince(h, time.Now()).
func MeasureSince(h kitmetrics.Histogram, t0 time.Time) {
	measureSince(h, t0, time.Now(), defaultTimingUnit)
}

// MeasureInterval observes the number of milliseconds between t0 and t1.
// It is MeasureSince for callers that read time from their own clock.
func MeasureInterval(h kitmetrics.Histogram, t0, t1 time.Time) {
	measureSince(h, t0, t1, defaultTimingUnit)
}

// measureSince truncates to whole units. Negative durations, as seen when
// the wall clock steps back, are observed as 0.
func measureSince(h kitmetrics.Histogram, t0, t1 time.Time, unit time.Duration) {
	d := t1.Sub(t0)
	if d < 0 {
		d = 0
	}
	h.Observe(float64(d / unit))
}

// Package clocktest provides scripted clocks for tests.
package clocktest

import (
	"sync"
	"time"

	"github.com/reqmetrics/x/clock"
)

// New returns a clock answering successive Now calls with ts, in order.
// Once ts is exhausted Now returns the zero time.
func New(ts ...time.Time) clock.Clock {
	var mu sync.Mutex
	return clock.Func(func() time.Time {
		mu.Lock()
		defer mu.Unlock()

		if len(ts) == 0 {
			return time.Time{}
		}
		t := ts[0]
		ts = ts[1:]
		return t
	})
}

// NewFromDurations is New with times offset from the current time by ds.
func NewFromDurations(ds ...time.Duration) clock.Clock {
	t0 := time.Now()
	ts := make([]time.Time, 0, len(ds))
	for _, d := range ds {
		ts = append(ts, t0.Add(d))
	}
	return New(ts...)
}

// Package clock lets code that timestamps or times things read the time from
// a source tests can control.
package clock

import "time"

// Default reads the wall clock.
var Default Clock = Func(time.Now)

// Clock tells you the current time.
type Clock interface {
	Now() time.Time
}

// Func adapts a function to a Clock.
type Func func() time.Time

// Now calls fn.
func (fn Func) Now() time.Time { return fn() }

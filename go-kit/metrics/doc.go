// Package metrics holds helpers for recording into go-kit metrics: timers
// observing durations in whole milliseconds and the bucket bounds histograms
// of those milliseconds are created with.
package metrics

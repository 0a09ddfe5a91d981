// Package testlog provides a logrus logger for tests and helpers to check
// what was logged.
package testlog

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
)

// Hook records every entry fired by the logger it is added to.
type Hook struct {
	mu      sync.Mutex
	entries []logrus.Entry
}

// New sets up a test logger that produces no output. Use the returned hook to
// observe and make assertions about what was logged.
func New() (*logrus.Logger, *Hook) {
	l := logrus.New()
	l.Out = io.Discard

	hook := new(Hook)
	l.Hooks.Add(hook)

	return l, hook
}

// Levels implements logrus.Hook.
func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire implements logrus.Hook.
func (h *Hook) Fire(e *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, *e)
	return nil
}

// Entries returns a copy of the entries logged so far.
func (h *Hook) Entries() []logrus.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]logrus.Entry(nil), h.entries...)
}

// LastEntry returns the last entry that was logged or nil.
func (h *Hook) LastEntry() *logrus.Entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.entries) == 0 {
		return nil
	}
	e := h.entries[len(h.entries)-1]
	return &e
}

// Reset forgets every entry logged so far.
func (h *Hook) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = nil
}

// String renders every entry logged so far with the logger's formatter,
// separated by spaces.
func (h *Hook) String() string {
	entries := h.Entries()
	res := make([]string, 0, len(entries))
	for i := range entries {
		if s, err := entries[i].String(); err == nil {
			res = append(res, strings.TrimSpace(s))
		}
	}
	return strings.Join(res, " ")
}

// CheckContained checks that at least one of strs has been logged.
func (h *Hook) CheckContained(tb testing.TB, strs ...string) {
	tb.Helper()

	if len(strs) == 0 {
		return
	}

	logged := h.String()
	for _, str := range strs {
		if contains(logged, str) {
			return
		}
	}
	tb.Fatalf("got entries:\n%v\nexpected to find one of:\n%v\n", logged, strs)
}

// CheckAllContained checks that every one of strs has been logged.
func (h *Hook) CheckAllContained(tb testing.TB, strs ...string) {
	tb.Helper()

	logged := h.String()
	var missing []string
	for _, str := range strs {
		if !contains(logged, str) {
			missing = append(missing, str)
		}
	}

	if len(missing) > 0 {
		tb.Fatalf("got entries: `%v` missing: `%v`", logged, missing)
	}
}

// CheckNotContained checks that none of strs has been logged.
func (h *Hook) CheckNotContained(tb testing.TB, strs ...string) {
	tb.Helper()

	logged := h.String()
	for _, str := range strs {
		if contains(logged, str) {
			tb.Fatalf("got `%s` expected none in %s", str, logged)
		}
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, canonicalizeQuotes(needle))
}

// canonicalizeQuotes quotes the value of a key="value" needle the way the
// logrus text formatter would, so tests can write either form.
func canonicalizeQuotes(str string) string {
	key, quoted, ok := strings.Cut(str, "=")
	if !ok || strings.Contains(quoted, "=") {
		return str
	}

	val, err := strconv.Unquote(quoted)
	if err != nil {
		return str
	}

	if needsQuoting(val) {
		return fmt.Sprintf("%s=%q", key, val)
	}
	return key + "=" + val
}

// needsQuoting mirrors the logrus text formatter: anything outside of
// a-z, A-Z, 0-9 and -._/@^+ is quoted.
func needsQuoting(text string) bool {
	for _, ch := range text {
		if !((ch >= 'a' && ch <= 'z') ||
			(ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') ||
			ch == '-' || ch == '.' || ch == '_' || ch == '/' || ch == '@' || ch == '^' || ch == '+') {
			return true
		}
	}
	return false
}

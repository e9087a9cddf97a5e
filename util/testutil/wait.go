package testutil

import (
	"testing"
	"time"
)

// WaitFor polls a condition function until it returns true or times out.
// It's useful for waiting on asynchronous operations in tests, such as a
// background reaper sweep or an event delivery loop catching up.
//
// Usage:
//
//	testutil.WaitFor(t, time.Second, "queue to drain", func() bool {
//	    return q.Len() == 0
//	})
func WaitFor(t testing.TB, timeout time.Duration, message string, condition func() bool) {
	t.Helper()

	if condition() {
		return
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		if condition() {
			return
		}
	}
	t.Fatalf("Timeout waiting for %s (waited %v)", message, timeout)
}

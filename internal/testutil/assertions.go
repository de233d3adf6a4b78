package testutil

import (
	"testing"
	"time"
)

// WaitFor polls check every 10ms until it returns true or timeout is reached.
func WaitFor(t *testing.T, timeout time.Duration, check func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for condition: %s", msg)
}

// WaitForRuns polls until the runner has received at least n requests.
func WaitForRuns(t *testing.T, r *MockRunner, n int, timeout time.Duration) {
	t.Helper()
	WaitFor(t, timeout, func() bool {
		return len(r.Requests()) >= n
	}, "pipeline runs >= target")
}

// WaitForPollCount polls until the store has been polled at least n times.
func WaitForPollCount(t *testing.T, s *MockStatusStore, n int64, timeout time.Duration) {
	t.Helper()
	WaitFor(t, timeout, func() bool {
		return s.PollCount() >= n
	}, "status poll count >= target")
}

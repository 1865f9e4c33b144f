package tick

import (
	"sync/atomic"
	"time"
)

// FakeSource is a test double whose ticks are fired explicitly.
// Its channel is unbuffered, so Fire returns only once the dispatcher has
// taken the tick.
type FakeSource struct {
	period  time.Duration
	ch      chan struct{}
	cleared atomic.Int32
	folded  atomic.Int64
}

// NewFakeSource creates a FakeSource reporting the given period.
func NewFakeSource(period time.Duration) *FakeSource {
	return &FakeSource{
		period: period,
		ch:     make(chan struct{}),
	}
}

// C returns the tick channel.
func (f *FakeSource) C() <-chan struct{} {
	return f.ch
}

// Take returns one plus the ticks queued with Fold since the last Take.
func (f *FakeSource) Take() int {
	return 1 + int(f.folded.Swap(0))
}

// Fold makes the next received tick stand for n additional hardware ticks,
// as if the dispatcher had stalled.
func (f *FakeSource) Fold(n int) {
	f.folded.Add(int64(n))
}

// ClearPending counts the call and forgets folded ticks; an unbuffered
// source never has a pending tick.
func (f *FakeSource) ClearPending() {
	f.cleared.Add(1)
	f.folded.Store(0)
}

// Cleared returns how many times ClearPending was called.
func (f *FakeSource) Cleared() int {
	return int(f.cleared.Load())
}

// Period returns the configured period.
func (f *FakeSource) Period() time.Duration {
	return f.period
}

// Fire delivers one tick, waiting at most timeout for it to be taken.
// It returns false if nothing received the tick, which is the case while the
// consuming cadence is disabled.
func (f *FakeSource) Fire(timeout time.Duration) bool {
	select {
	case f.ch <- struct{}{}:
		return true
	case <-time.After(timeout):
		return false
	}
}

// FireN delivers n ticks and returns how many were taken.
func (f *FakeSource) FireN(n int, timeout time.Duration) int {
	taken := 0
	for i := 0; i < n; i++ {
		if f.Fire(timeout) {
			taken++
		}
	}
	return taken
}

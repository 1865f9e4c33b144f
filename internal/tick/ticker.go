package tick

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickerSource is a free-running Source backed by a time.Ticker.
// The ticker runs for the life of the source regardless of whether any
// cadence is consuming it, like a hardware counter.
type TickerSource struct {
	period  time.Duration
	pending chan struct{}
	folded  atomic.Int64 // ticks that arrived while an event was pending
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewTickerSource starts a free-running source with the given period.
func NewTickerSource(period time.Duration) *TickerSource {
	s := &TickerSource{
		period:  period,
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *TickerSource) run() {
	defer s.wg.Done()
	t := time.NewTicker(s.period)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			// Latch one pending event; further ticks fold into it until consumed.
			select {
			case s.pending <- struct{}{}:
			default:
				s.folded.Add(1)
			}
		}
	}
}

// C returns the pending-event channel.
func (s *TickerSource) C() <-chan struct{} {
	return s.pending
}

// Take returns one plus the ticks folded since the last Take.
func (s *TickerSource) Take() int {
	return 1 + int(s.folded.Swap(0))
}

// ClearPending drops a latched event, if any, and forgets folded ticks.
func (s *TickerSource) ClearPending() {
	select {
	case <-s.pending:
	default:
	}
	s.folded.Store(0)
}

// Period returns the tick period.
func (s *TickerSource) Period() time.Duration {
	return s.period
}

// Close stops the underlying ticker.
func (s *TickerSource) Close() error {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
	return nil
}

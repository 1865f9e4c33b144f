// Package tick provides the periodic tick sources that drive the control and
// cooling cadences. A Source behaves like a hardware timer interrupt flag: it
// fires at a fixed period and latches one pending event until it is consumed
// or cleared. Ticks that arrive while an event is already pending are counted
// into it, so a late dispatcher catches up instead of losing time.
package tick

import (
	"time"

	"github.com/sweeney/furnace-controller/internal/logic"
)

// Hardware periods of the two free-running tick sources.
const (
	ControlPeriod = 10 * time.Millisecond    // 1:4 prescale, 250 counts, 1:10 postscale
	CoolingPeriod = 65536 * time.Microsecond // 8-bit overflow at 1:256 prescale
)

// Source emits tick events at a fixed period.
type Source interface {
	// C returns the channel on which pending tick events are delivered.
	C() <-chan struct{}

	// Take reports how many hardware ticks the event just received from C
	// stands for: one, plus any ticks folded into it while it was pending.
	Take() int

	// ClearPending discards a tick event that fired but was not consumed,
	// together with any ticks folded into it.
	ClearPending()

	// Period returns the hardware tick period.
	Period() time.Duration
}

// Cadence binds a Source to a software counter. It is the only place where a
// source is enabled or disabled. Not safe for concurrent use; a Cadence is
// owned by the goroutine that dispatches its ticks.
type Cadence struct {
	name    string
	source  Source
	counter logic.CadenceCounter
	enabled bool
}

// NewCadence creates a disabled cadence firing every multiplier ticks of src.
func NewCadence(name string, src Source, multiplier int) *Cadence {
	return &Cadence{
		name:    name,
		source:  src,
		counter: logic.NewCadenceCounter(multiplier),
	}
}

// Name returns the cadence name used in logs and status.
func (c *Cadence) Name() string {
	return c.name
}

// Arm resets the counter, clears any pending event and enables the cadence.
func (c *Cadence) Arm() {
	c.counter.Arm()
	c.source.ClearPending()
	c.enabled = true
}

// Disable stops delivery of tick events. The counter is frozen.
func (c *Cadence) Disable() {
	c.enabled = false
}

// Enabled reports whether the cadence is currently armed.
func (c *Cadence) Enabled() bool {
	return c.enabled
}

// Events returns the source channel while enabled and nil otherwise, so a
// disabled cadence can never be selected.
func (c *Cadence) Events() <-chan struct{} {
	if !c.enabled {
		return nil
	}
	return c.source.C()
}

// Tick counts the hardware ticks behind one received event and returns how
// many times the cadence period elapsed. Usually that is zero or one; it is
// more only when the dispatcher fell behind by a whole period. Events received
// while disabled are ignored.
func (c *Cadence) Tick() int {
	if !c.enabled {
		return 0
	}
	fires := 0
	for n := c.source.Take(); n > 0; n-- {
		if c.counter.Tick() {
			fires++
		}
	}
	return fires
}

// Count returns the current counter value.
func (c *Cadence) Count() int {
	return c.counter.Count
}

// Period returns the application period of the cadence.
func (c *Cadence) Period() time.Duration {
	return c.source.Period() * time.Duration(c.counter.Multiplier)
}

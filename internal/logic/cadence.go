package logic

// CadenceCounter converts a short hardware tick period into an application
// period by counting ticks up to Multiplier.
type CadenceCounter struct {
	Count      int
	Multiplier int
}

// NewCadenceCounter creates an armed counter for the given multiplier.
func NewCadenceCounter(multiplier int) CadenceCounter {
	return CadenceCounter{Count: 1, Multiplier: multiplier}
}

// Arm resets the counter to its initial count.
func (c *CadenceCounter) Arm() {
	c.Count = 1
}

// Tick counts one hardware tick. It returns true when the cadence period has
// elapsed, in which case the counter wraps back to 1.
// Count never exceeds Multiplier.
func (c *CadenceCounter) Tick() bool {
	if c.Count >= c.Multiplier {
		c.Count = 1
		return true
	}
	c.Count++
	return false
}

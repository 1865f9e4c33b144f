package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCadenceCounterFiresEveryMultiplierTicks(t *testing.T) {
	c := NewCadenceCounter(ControlMultiplier)

	fired := 0
	for i := 1; i <= 3*ControlMultiplier; i++ {
		if c.Tick() {
			fired++
			assert.Zero(t, i%ControlMultiplier, "fired on tick %d", i)
		}
	}
	assert.Equal(t, 3, fired)
	assert.Equal(t, 1, c.Count)
}

func TestCadenceCounterNeverExceedsMultiplier(t *testing.T) {
	c := NewCadenceCounter(CoolingMultiplier)
	for i := 0; i < 1000; i++ {
		c.Tick()
		assert.LessOrEqual(t, c.Count, c.Multiplier)
		assert.GreaterOrEqual(t, c.Count, 1)
	}
}

func TestCadenceCounterRecoversFromOverrun(t *testing.T) {
	c := CadenceCounter{Count: CoolingMultiplier + 5, Multiplier: CoolingMultiplier}
	assert.True(t, c.Tick())
	assert.Equal(t, 1, c.Count)
}

func TestCadenceCounterArmResetsPartialCount(t *testing.T) {
	c := NewCadenceCounter(CoolingMultiplier)
	for i := 0; i < CoolingMultiplier-1; i++ {
		assert.False(t, c.Tick())
	}
	c.Arm()
	assert.Equal(t, 1, c.Count)

	// A full period is needed again after re-arming.
	for i := 0; i < CoolingMultiplier-1; i++ {
		assert.False(t, c.Tick(), "tick %d after arm", i+1)
	}
	assert.True(t, c.Tick())
}

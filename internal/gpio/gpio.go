// Package gpio provides the plant's digital I/O with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing and bench simulation without hardware.
package gpio

// Sample is a single reading of all plant inputs, in logical form.
type Sample struct {
	Mode   bool  // true = automatic work requested
	FuelOK bool  // true = fuel above the minimum level
	High   bool  // true = turbine in high gear
	Target uint8 // raw target temperature bus
	Room   uint8 // raw room temperature bus
}

// Outputs is the complete set of plant outputs.
type Outputs struct {
	Turbine       bool
	LowFuelAlert  bool
	HighTempAlert bool
	Temperature   uint8
}

// IO reads plant inputs and drives plant outputs.
type IO interface {
	// Read samples every input line and bus.
	Read() (Sample, error)

	// Write drives every output line and bus.
	Write(out Outputs) error

	// ModeChanges delivers a notification after the mode input changes.
	// Notifications coalesce; receivers must re-read the input.
	ModeChanges() <-chan struct{}

	// Close releases GPIO resources.
	Close() error
}

// busValue assembles a bus value from line values, least significant bit first.
func busValue(vals []int) uint8 {
	var v uint8
	for i, bit := range vals {
		if bit != 0 {
			v |= 1 << uint(i)
		}
	}
	return v
}

// busLines splits a bus value into n line values, least significant bit first.
func busLines(v uint8, n int) []int {
	vals := make([]int, n)
	for i := range vals {
		vals[i] = int(v>>uint(i)) & 1
	}
	return vals
}

func lineValue(b bool) int {
	if b {
		return 1
	}
	return 0
}

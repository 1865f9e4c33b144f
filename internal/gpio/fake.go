package gpio

import "sync"

// MaxRecordedOutputs bounds the write history kept by FakeIO, so a long
// simulation run does not grow without limit. The oldest writes go first.
const MaxRecordedOutputs = 1024

// FakeIO is an in-memory IO used by tests and by the bench simulation.
// Inputs are set with the Set methods; the most recent writes are recorded.
// Safe for concurrent use.
type FakeIO struct {
	mu sync.Mutex

	sample  Sample
	outputs []Outputs
	closed  bool

	// readErr, if set, is returned by Read.
	readErr error
	// writeErr, if set, is returned by Write.
	writeErr error

	modeCh chan struct{}
}

// NewFakeIO creates a FakeIO with the given initial inputs.
func NewFakeIO(initial Sample) *FakeIO {
	return &FakeIO{
		sample: initial,
		modeCh: make(chan struct{}, 1),
	}
}

// Read returns the current inputs.
func (f *FakeIO) Read() (Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return Sample{}, f.readErr
	}
	return f.sample, nil
}

// Write records the outputs, dropping the oldest record once
// MaxRecordedOutputs are held.
func (f *FakeIO) Write(out Outputs) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if len(f.outputs) == MaxRecordedOutputs {
		copy(f.outputs, f.outputs[1:])
		f.outputs = f.outputs[:len(f.outputs)-1]
	}
	f.outputs = append(f.outputs, out)
	return nil
}

// ModeChanges delivers a notification after each SetMode that changes the mode.
func (f *FakeIO) ModeChanges() <-chan struct{} {
	return f.modeCh
}

// Close marks the IO as closed.
func (f *FakeIO) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeIO) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// SetMode sets the mode input and signals an edge if it changed.
func (f *FakeIO) SetMode(automatic bool) {
	f.mu.Lock()
	changed := f.sample.Mode != automatic
	f.sample.Mode = automatic
	f.mu.Unlock()
	if changed {
		select {
		case f.modeCh <- struct{}{}:
		default:
		}
	}
}

// SetModeNoEdge sets the mode input without an edge notification,
// simulating a lost edge event.
func (f *FakeIO) SetModeNoEdge(automatic bool) {
	f.mu.Lock()
	f.sample.Mode = automatic
	f.mu.Unlock()
}

// SetFuel sets the fuel sensor input.
func (f *FakeIO) SetFuel(ok bool) {
	f.mu.Lock()
	f.sample.FuelOK = ok
	f.mu.Unlock()
}

// SetGear sets the gear input.
func (f *FakeIO) SetGear(high bool) {
	f.mu.Lock()
	f.sample.High = high
	f.mu.Unlock()
}

// SetTarget sets the target temperature bus.
func (f *FakeIO) SetTarget(v uint8) {
	f.mu.Lock()
	f.sample.Target = v
	f.mu.Unlock()
}

// SetRoom sets the room temperature bus.
func (f *FakeIO) SetRoom(v uint8) {
	f.mu.Lock()
	f.sample.Room = v
	f.mu.Unlock()
}

// SetReadError makes subsequent reads fail with err (nil clears it).
func (f *FakeIO) SetReadError(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

// SetWriteError makes subsequent writes fail with err (nil clears it).
func (f *FakeIO) SetWriteError(err error) {
	f.mu.Lock()
	f.writeErr = err
	f.mu.Unlock()
}

// Outputs returns a copy of the recorded writes, oldest first.
func (f *FakeIO) Outputs() []Outputs {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Outputs(nil), f.outputs...)
}

// Last returns the most recent write and whether any write happened.
func (f *FakeIO) Last() (Outputs, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.outputs) == 0 {
		return Outputs{}, false
	}
	return f.outputs[len(f.outputs)-1], true
}

//go:build !linux

package gpio

import "errors"

// RealIO is not available on non-Linux platforms.
type RealIO struct{}

// NewRealIO returns an error on non-Linux platforms.
func NewRealIO(pm PinMap) (*RealIO, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *RealIO) Read() (Sample, error) {
	return Sample{}, errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (r *RealIO) Write(out Outputs) error {
	return errors.New("gpio: not supported")
}

// ModeChanges never delivers on non-Linux platforms.
func (r *RealIO) ModeChanges() <-chan struct{} {
	return nil
}

// Close is not implemented on non-Linux platforms.
func (r *RealIO) Close() error {
	return nil
}

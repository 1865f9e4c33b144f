//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealIO drives the plant from actual hardware using the Linux GPIO character device.
type RealIO struct {
	chip *gpiocdev.Chip

	mode *gpiocdev.Line
	fuel *gpiocdev.Line
	gear *gpiocdev.Line

	target *gpiocdev.Lines
	room   *gpiocdev.Lines

	turbine       *gpiocdev.Line
	lowFuelAlert  *gpiocdev.Line
	highTempAlert *gpiocdev.Line
	temperature   *gpiocdev.Lines

	modeCh chan struct{}
}

// NewRealIO requests every line of the pin map. Inputs are pulled down;
// outputs start low. The mode line reports both edges so mode changes wake
// the controller without polling.
func NewRealIO(pm PinMap) (*RealIO, error) {
	if err := pm.Validate(); err != nil {
		return nil, fmt.Errorf("pin map: %w", err)
	}

	chip, err := gpiocdev.NewChip(pm.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", pm.Chip, err)
	}

	r := &RealIO{
		chip:   chip,
		modeCh: make(chan struct{}, 1),
	}

	fail := func(err error) (*RealIO, error) {
		r.release()
		return nil, err
	}

	r.mode, err = chip.RequestLine(pm.Mode.Offset, inputOptions(pm.Mode,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(r.handleModeEdge))...)
	if err != nil {
		return fail(fmt.Errorf("request mode pin %d: %w", pm.Mode.Offset, err))
	}
	if r.fuel, err = chip.RequestLine(pm.Fuel.Offset, inputOptions(pm.Fuel)...); err != nil {
		return fail(fmt.Errorf("request fuel pin %d: %w", pm.Fuel.Offset, err))
	}
	if r.gear, err = chip.RequestLine(pm.Gear.Offset, inputOptions(pm.Gear)...); err != nil {
		return fail(fmt.Errorf("request gear pin %d: %w", pm.Gear.Offset, err))
	}

	if r.target, err = chip.RequestLines(pm.Target, gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		return fail(fmt.Errorf("request target bus %v: %w", pm.Target, err))
	}
	if r.room, err = chip.RequestLines(pm.Room, gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
		return fail(fmt.Errorf("request room bus %v: %w", pm.Room, err))
	}

	if r.turbine, err = chip.RequestLine(pm.Turbine.Offset, outputOptions(pm.Turbine)...); err != nil {
		return fail(fmt.Errorf("request turbine pin %d: %w", pm.Turbine.Offset, err))
	}
	if r.lowFuelAlert, err = chip.RequestLine(pm.LowFuelAlert.Offset, outputOptions(pm.LowFuelAlert)...); err != nil {
		return fail(fmt.Errorf("request low fuel alert pin %d: %w", pm.LowFuelAlert.Offset, err))
	}
	if r.highTempAlert, err = chip.RequestLine(pm.HighTempAlert.Offset, outputOptions(pm.HighTempAlert)...); err != nil {
		return fail(fmt.Errorf("request high temp alert pin %d: %w", pm.HighTempAlert.Offset, err))
	}
	if r.temperature, err = chip.RequestLines(pm.Temperature, gpiocdev.AsOutput(make([]int, len(pm.Temperature))...)); err != nil {
		return fail(fmt.Errorf("request temperature bus %v: %w", pm.Temperature, err))
	}

	return r, nil
}

func inputOptions(l Line, extra ...gpiocdev.LineReqOption) []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	if l.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	return append(opts, extra...)
}

func outputOptions(l Line) []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if l.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	return opts
}

// handleModeEdge runs on the gpiocdev event goroutine.
func (r *RealIO) handleModeEdge(gpiocdev.LineEvent) {
	select {
	case r.modeCh <- struct{}{}:
	default:
	}
}

// Read samples every input line and bus.
func (r *RealIO) Read() (Sample, error) {
	var s Sample

	mode, err := r.mode.Value()
	if err != nil {
		return s, fmt.Errorf("read mode pin: %w", err)
	}
	fuel, err := r.fuel.Value()
	if err != nil {
		return s, fmt.Errorf("read fuel pin: %w", err)
	}
	gear, err := r.gear.Value()
	if err != nil {
		return s, fmt.Errorf("read gear pin: %w", err)
	}

	target := make([]int, TargetBits)
	if err := r.target.Values(target); err != nil {
		return s, fmt.Errorf("read target bus: %w", err)
	}
	room := make([]int, RoomBits)
	if err := r.room.Values(room); err != nil {
		return s, fmt.Errorf("read room bus: %w", err)
	}

	s.Mode = mode == 1
	s.FuelOK = fuel == 1
	s.High = gear == 1
	s.Target = busValue(target)
	s.Room = busValue(room)
	return s, nil
}

// Write drives every output line and bus.
func (r *RealIO) Write(out Outputs) error {
	if err := r.turbine.SetValue(lineValue(out.Turbine)); err != nil {
		return fmt.Errorf("write turbine pin: %w", err)
	}
	if err := r.lowFuelAlert.SetValue(lineValue(out.LowFuelAlert)); err != nil {
		return fmt.Errorf("write low fuel alert pin: %w", err)
	}
	if err := r.highTempAlert.SetValue(lineValue(out.HighTempAlert)); err != nil {
		return fmt.Errorf("write high temp alert pin: %w", err)
	}
	if err := r.temperature.SetValues(busLines(out.Temperature, TemperatureBits)); err != nil {
		return fmt.Errorf("write temperature bus: %w", err)
	}
	return nil
}

// ModeChanges delivers a notification on every edge of the mode line.
func (r *RealIO) ModeChanges() <-chan struct{} {
	return r.modeCh
}

// Close drives the turbine and alerts low, then reconfigures every line as
// a pulled-down input before releasing it, matching the board's boot state.
func (r *RealIO) Close() error {
	var errs []error
	if r.turbine != nil {
		if err := r.Write(Outputs{}); err != nil {
			errs = append(errs, fmt.Errorf("clear outputs: %w", err))
		}
	}
	errs = append(errs, r.release()...)
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func (r *RealIO) release() []error {
	var errs []error

	lines := []struct {
		name string
		line *gpiocdev.Line
	}{
		{"mode", r.mode},
		{"fuel", r.fuel},
		{"gear", r.gear},
		{"turbine", r.turbine},
		{"low fuel alert", r.lowFuelAlert},
		{"high temp alert", r.highTempAlert},
	}
	for _, l := range lines {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}

	buses := []struct {
		name  string
		lines *gpiocdev.Lines
	}{
		{"target", r.target},
		{"room", r.room},
		{"temperature", r.temperature},
	}
	for _, b := range buses {
		if b.lines == nil {
			continue
		}
		if err := b.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s bus: %w", b.name, err))
		}
		if err := b.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s bus: %w", b.name, err))
		}
	}

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errs
}

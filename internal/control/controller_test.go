package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/furnace-controller/internal/gpio"
	"github.com/sweeney/furnace-controller/internal/logic"
	"github.com/sweeney/furnace-controller/internal/tick"
)

const fireTimeout = time.Second

type recordingObserver struct {
	mu     sync.Mutex
	states []State
	events []logic.Event
}

func (r *recordingObserver) Observe(st State, events []logic.Event) {
	r.mu.Lock()
	r.states = append(r.states, st)
	r.events = append(r.events, events...)
	r.mu.Unlock()
}

func (r *recordingObserver) types() []logic.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []logic.EventType
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	ctrl    *Controller
	io      *gpio.FakeIO
	control *tick.FakeSource
	cooling *tick.FakeSource
	obs     *recordingObserver
}

func newHarness(t *testing.T, in gpio.Sample) *harness {
	t.Helper()
	h := &harness{
		io:      gpio.NewFakeIO(in),
		control: tick.NewFakeSource(tick.ControlPeriod),
		cooling: tick.NewFakeSource(tick.CoolingPeriod),
		obs:     &recordingObserver{},
	}
	ctrl, err := New(Config{
		IO:       h.io,
		Control:  h.control,
		Cooling:  h.cooling,
		Now:      func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
		Observer: h.obs,
	})
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

// controlCycles runs n full control cadences through the tick handler.
func (h *harness) controlCycles(n int) {
	for i := 0; i < n*logic.ControlMultiplier; i++ {
		h.ctrl.onControlTick()
	}
}

// coolingCycles runs n full cooling cadences through the tick handler.
func (h *harness) coolingCycles(n int) {
	for i := 0; i < n*logic.CoolingMultiplier; i++ {
		h.ctrl.onCoolingTick()
	}
}

// start runs the controller in the background and returns a stop function
// that cancels it and waits for Run to return.
func (h *harness) start(t *testing.T) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.ctrl.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(fireTimeout):
			t.Fatal("Run did not return after cancel")
		}
	}
}

func automatic(target uint8) gpio.Sample {
	return gpio.Sample{Mode: true, FuelOK: true, Target: target, Room: 20}
}

func TestNewSeedsFromRoomBus(t *testing.T) {
	h := newHarness(t, gpio.Sample{Room: 0xFF, Target: 50})

	assert.Equal(t, uint8(31), h.ctrl.plant.Thermal.Room)
	assert.Equal(t, uint8(31), h.ctrl.plant.Thermal.Current)

	out, ok := h.io.Last()
	require.True(t, ok, "initial outputs written")
	assert.Equal(t, gpio.Outputs{Temperature: 31}, out)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{IO: gpio.NewFakeIO(gpio.Sample{})})
	assert.Error(t, err)
}

func TestNewReadError(t *testing.T) {
	io := gpio.NewFakeIO(gpio.Sample{})
	io.SetReadError(errors.New("bus fault"))

	_, err := New(Config{
		IO:      io,
		Control: tick.NewFakeSource(tick.ControlPeriod),
		Cooling: tick.NewFakeSource(tick.CoolingPeriod),
	})
	assert.Error(t, err)
}

func TestAtMostOneCadenceEnabled(t *testing.T) {
	h := newHarness(t, automatic(50))

	check := func() {
		t.Helper()
		assert.False(t, h.ctrl.control.Enabled() && h.ctrl.cooling.Enabled())
	}

	check()
	for i := 0; i < 5; i++ {
		h.ctrl.EnterAutomatic()
		check()
		assert.True(t, h.ctrl.control.Enabled())
		assert.Equal(t, "control", h.ctrl.State().Cadence)

		h.ctrl.EnterManual()
		check()
		assert.True(t, h.ctrl.cooling.Enabled())
		assert.Equal(t, "cooling", h.ctrl.State().Cadence)
	}

	h.ctrl.disarm()
	assert.False(t, h.ctrl.control.Enabled())
	assert.False(t, h.ctrl.cooling.Enabled())
}

func TestEnterArmsCadence(t *testing.T) {
	h := newHarness(t, automatic(50))

	h.ctrl.EnterAutomatic()
	for i := 0; i < 150; i++ {
		h.ctrl.onControlTick()
	}
	require.Equal(t, 151, h.ctrl.control.Count())

	h.ctrl.EnterManual()
	h.ctrl.EnterAutomatic()
	assert.Equal(t, 1, h.ctrl.control.Count(), "re-entry resets a partial count")
	assert.Equal(t, 2, h.control.Cleared(), "pending tick cleared on each arm")

	// A stale partial count must not produce an early update.
	for i := 0; i < logic.ControlMultiplier-1; i++ {
		h.ctrl.onControlTick()
	}
	assert.Equal(t, uint8(20), h.ctrl.plant.Thermal.Current)
	h.ctrl.onControlTick()
	assert.Equal(t, uint8(21), h.ctrl.plant.Thermal.Current)
}

func TestStalledDispatcherCatchesUp(t *testing.T) {
	h := newHarness(t, automatic(50))
	h.ctrl.EnterAutomatic()

	// One tick event carrying two full control periods of hardware ticks.
	h.control.Fold(2*logic.ControlMultiplier - 1)
	h.ctrl.onControlTick()
	assert.Equal(t, uint8(22), h.ctrl.plant.Thermal.Current, "both control updates ran")
	assert.Equal(t, 1, h.ctrl.control.Count())

	h.ctrl.plant.Thermal.Current = 30
	h.ctrl.EnterManual()
	h.cooling.Fold(3*logic.CoolingMultiplier - 1)
	h.ctrl.onCoolingTick()
	assert.Equal(t, uint8(27), h.ctrl.plant.Thermal.Current, "three cooling updates ran")
}

func TestDisabledCadenceIgnoresTicks(t *testing.T) {
	h := newHarness(t, automatic(50))
	h.ctrl.plant.Thermal.Current = 40

	h.ctrl.EnterAutomatic()
	h.coolingCycles(3)
	assert.Equal(t, uint8(40), h.ctrl.plant.Thermal.Current)

	h.ctrl.EnterManual()
	h.controlCycles(3)
	assert.Equal(t, uint8(40), h.ctrl.plant.Thermal.Current)
}

func TestAutomaticRisesToTarget(t *testing.T) {
	h := newHarness(t, automatic(50))
	h.ctrl.EnterAutomatic()

	for i := 1; i <= 30; i++ {
		h.controlCycles(1)
		assert.Equal(t, uint8(20+i), h.ctrl.plant.Thermal.Current)
	}

	out, _ := h.io.Last()
	assert.Equal(t, gpio.Outputs{Turbine: true, Temperature: 50}, out)

	h.controlCycles(1)
	out, _ = h.io.Last()
	assert.False(t, out.Turbine)
}

func TestAutomaticHighGear(t *testing.T) {
	in := automatic(50)
	in.High = true
	h := newHarness(t, in)
	h.ctrl.EnterAutomatic()

	h.controlCycles(3)
	assert.Equal(t, uint8(26), h.ctrl.plant.Thermal.Current)
}

func TestManualForcesTurbineOffAndCools(t *testing.T) {
	h := newHarness(t, automatic(80))
	h.ctrl.EnterAutomatic()
	h.controlCycles(1)
	require.True(t, h.ctrl.plant.Turbine)
	h.ctrl.plant.Thermal.Current = 60

	h.ctrl.EnterManual()

	assert.False(t, h.ctrl.plant.Turbine, "turbine stops at the transition, not on a tick")
	out, _ := h.io.Last()
	assert.False(t, out.Turbine)
	assert.Equal(t, uint8(60), out.Temperature)

	h.coolingCycles(1)
	assert.Equal(t, uint8(59), h.ctrl.plant.Thermal.Current)

	h.coolingCycles(100)
	assert.Equal(t, uint8(20), h.ctrl.plant.Thermal.Current)
	out, _ = h.io.Last()
	assert.Equal(t, uint8(20), out.Temperature)

	assert.Equal(t, []logic.EventType{
		logic.EventModeAutomatic,
		logic.EventTurbineOn,
		logic.EventModeManual,
		logic.EventTurbineOff,
	}, h.obs.types())
}

func TestHighTemperatureTripsInAutomatic(t *testing.T) {
	h := newHarness(t, automatic(120))
	h.ctrl.EnterAutomatic()
	h.controlCycles(1)
	require.True(t, h.ctrl.plant.Turbine)
	h.ctrl.plant.Thermal.Current = 95

	h.controlCycles(1)

	out, _ := h.io.Last()
	assert.True(t, out.HighTempAlert)
	assert.False(t, out.Turbine)
	assert.Equal(t, uint8(94), out.Temperature)
}

func TestLowFuelStopsTurbine(t *testing.T) {
	h := newHarness(t, automatic(50))
	h.ctrl.EnterAutomatic()
	h.controlCycles(2)
	require.True(t, h.ctrl.plant.Turbine)

	h.io.SetFuel(false)
	h.controlCycles(1)

	out, _ := h.io.Last()
	assert.True(t, out.LowFuelAlert)
	assert.False(t, out.Turbine)

	h.io.SetFuel(true)
	h.controlCycles(1)
	out, _ = h.io.Last()
	assert.False(t, out.LowFuelAlert)
	assert.True(t, out.Turbine)
}

func TestControlTickReadErrorSkipsUpdate(t *testing.T) {
	h := newHarness(t, automatic(50))
	h.ctrl.EnterAutomatic()
	writes := len(h.io.Outputs())

	h.io.SetReadError(errors.New("bus fault"))
	h.controlCycles(1)

	assert.Equal(t, uint8(20), h.ctrl.plant.Thermal.Current)
	assert.Len(t, h.io.Outputs(), writes)
	assert.Equal(t, 1, h.ctrl.control.Count())
}

func TestReadModeFallsBack(t *testing.T) {
	h := newHarness(t, automatic(50))
	h.io.SetReadError(errors.New("bus fault"))
	assert.Equal(t, logic.ModeManual, h.ctrl.readMode())

	h.io.SetReadError(nil)
	h.ctrl.EnterAutomatic()
	h.io.SetReadError(errors.New("bus fault"))
	assert.Equal(t, logic.ModeAutomatic, h.ctrl.readMode())
}

func TestRunAutomaticCycle(t *testing.T) {
	h := newHarness(t, automatic(50))
	stop := h.start(t)

	require.Equal(t, logic.ControlMultiplier, h.control.FireN(logic.ControlMultiplier, fireTimeout))
	assert.False(t, h.cooling.Fire(20*time.Millisecond), "cooling cadence is disabled in automatic mode")
	stop()

	assert.Equal(t, logic.ModeAutomatic, h.ctrl.plant.Mode)
	assert.Equal(t, uint8(21), h.ctrl.plant.Thermal.Current)
	assert.True(t, h.ctrl.plant.Turbine)
	assert.False(t, h.ctrl.control.Enabled(), "cadences disarmed on shutdown")
}

func TestRunSwitchesModes(t *testing.T) {
	h := newHarness(t, automatic(50))
	stop := h.start(t)

	require.Equal(t, logic.ControlMultiplier, h.control.FireN(logic.ControlMultiplier, fireTimeout))

	h.io.SetMode(false)
	// The first cooling tick is only taken once manual mode has been entered.
	require.Equal(t, logic.CoolingMultiplier, h.cooling.FireN(logic.CoolingMultiplier, fireTimeout))
	assert.False(t, h.control.Fire(20*time.Millisecond), "control cadence is disabled in manual mode")

	h.io.SetMode(true)
	require.Equal(t, logic.ControlMultiplier, h.control.FireN(logic.ControlMultiplier, fireTimeout))
	stop()

	assert.Equal(t, []logic.EventType{
		logic.EventModeAutomatic,
		logic.EventTurbineOn,
		logic.EventModeManual,
		logic.EventTurbineOff,
		logic.EventModeAutomatic,
		logic.EventTurbineOn,
	}, h.obs.types())
	assert.Equal(t, uint8(21), h.ctrl.plant.Thermal.Current)
	assert.Equal(t, 3, h.ctrl.plant.Counts.ModeChanges)
}

func TestRunModePoll(t *testing.T) {
	io := gpio.NewFakeIO(gpio.Sample{Room: 20})
	poll := make(chan time.Time)
	control := tick.NewFakeSource(tick.ControlPeriod)
	cooling := tick.NewFakeSource(tick.CoolingPeriod)
	ctrl, err := New(Config{IO: io, Control: control, Cooling: cooling, ModePoll: poll})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ctrl.Run(ctx)
		close(done)
	}()

	require.True(t, cooling.Fire(fireTimeout), "manual mode entered")

	// Change the mode without an edge notification; only the poll sees it.
	io.SetModeNoEdge(true)
	assert.False(t, control.Fire(20*time.Millisecond))
	poll <- time.Time{}

	assert.True(t, control.Fire(fireTimeout))
	cancel()
	<-done
	assert.Equal(t, logic.ModeAutomatic, ctrl.plant.Mode)
}

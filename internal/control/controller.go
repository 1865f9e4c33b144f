// Package control runs the furnace mode state machine and dispatches cadence
// ticks to the plant logic. A Controller is driven by a single goroutine
// (Run); plant state is never touched from anywhere else.
package control

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/furnace-controller/internal/gpio"
	"github.com/sweeney/furnace-controller/internal/logic"
	"github.com/sweeney/furnace-controller/internal/tick"
)

// State is a copy of the controller state handed to observers.
type State struct {
	Plant   logic.Plant
	Cadence string // name of the armed cadence
}

// Observer is notified after every change to plant state or mode.
// It is called on the controller goroutine and must not block.
type Observer interface {
	Observe(st State, events []logic.Event)
}

// Config wires a Controller to its collaborators.
type Config struct {
	IO      gpio.IO
	Control tick.Source // 10ms hardware tick
	Cooling tick.Source // 65.5ms hardware tick

	// ModePoll, if set, re-checks the mode input on every receive in
	// addition to the edge notifications from IO.
	ModePoll <-chan time.Time

	// Now defaults to time.Now.
	Now func() time.Time

	Observer Observer
}

// Controller is the top-level mode state machine.
type Controller struct {
	io       gpio.IO
	plant    *logic.Plant
	control  *tick.Cadence
	cooling  *tick.Cadence
	active   *tick.Cadence
	modePoll <-chan time.Time
	now      func() time.Time
	obs      Observer
}

// New creates a Controller and seeds the plant from the room temperature bus.
// The initial outputs (turbine off, alerts off, temperature at room) are
// written before New returns.
func New(cfg Config) (*Controller, error) {
	if cfg.IO == nil || cfg.Control == nil || cfg.Cooling == nil {
		return nil, fmt.Errorf("control: io and both tick sources are required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s, err := cfg.IO.Read()
	if err != nil {
		return nil, fmt.Errorf("read room temperature: %w", err)
	}

	c := &Controller{
		io:       cfg.IO,
		plant:    logic.NewPlant(s.Room),
		control:  tick.NewCadence("control", cfg.Control, logic.ControlMultiplier),
		cooling:  tick.NewCadence("cooling", cfg.Cooling, logic.CoolingMultiplier),
		modePoll: cfg.ModePoll,
		now:      now,
		obs:      cfg.Observer,
	}
	if err := c.io.Write(outputsOf(c.plant)); err != nil {
		return nil, fmt.Errorf("write initial outputs: %w", err)
	}
	log.Printf("control: booted at room temperature %d", c.plant.Thermal.Room)
	return c, nil
}

// Run executes the mode loop until ctx is cancelled. Each iteration enters
// the mode read from the mode input and then waits, handling ticks of the
// armed cadence, until the mode input changes.
func (c *Controller) Run(ctx context.Context) error {
	for {
		mode := c.readMode()
		switch mode {
		case logic.ModeAutomatic:
			c.EnterAutomatic()
		default:
			c.EnterManual()
		}
		if err := c.wait(ctx, mode); err != nil {
			c.disarm()
			return nil
		}
	}
}

// wait blocks until the mode input no longer reads mode or ctx is done.
// No plant logic runs here; everything happens in the tick handlers.
func (c *Controller) wait(ctx context.Context, mode logic.Mode) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.control.Events():
			c.onControlTick()
		case <-c.cooling.Events():
			c.onCoolingTick()
		case <-c.io.ModeChanges():
			if c.readMode() != mode {
				return nil
			}
		case <-c.modePoll:
			if c.readMode() != mode {
				return nil
			}
		}
	}
}

// EnterAutomatic disables the cooling cadence and arms the control cadence.
func (c *Controller) EnterAutomatic() {
	c.disarm()
	events := c.plant.SetMode(logic.ModeAutomatic, c.now())
	c.arm(c.control)
	c.commit(events)
	log.Printf("control: mode %s, %s cadence armed (%v)", logic.ModeAutomatic, c.active.Name(), c.active.Period())
}

// EnterManual disables the control cadence, stops the turbine immediately
// and arms the cooling cadence.
func (c *Controller) EnterManual() {
	c.disarm()
	now := c.now()
	events := c.plant.SetMode(logic.ModeManual, now)
	events = append(events, c.plant.ForceTurbineOff(now)...)
	c.arm(c.cooling)
	c.commit(events)
	log.Printf("control: mode %s, %s cadence armed (%v)", logic.ModeManual, c.active.Name(), c.active.Period())
}

// disarm disables both cadences. It always runs before a cadence is armed,
// so at most one cadence is enabled at any time.
func (c *Controller) disarm() {
	c.control.Disable()
	c.cooling.Disable()
	c.active = nil
}

func (c *Controller) arm(cd *tick.Cadence) {
	cd.Arm()
	c.active = cd
}

// onControlTick runs one control update per elapsed control period. More
// than one runs only after the dispatcher stalled for a whole period.
func (c *Controller) onControlTick() {
	for fires := c.control.Tick(); fires > 0; fires-- {
		s, err := c.io.Read()
		if err != nil {
			log.Printf("control: input read error, skipping control update: %v", err)
			continue
		}
		c.commit(c.plant.ControlUpdate(inputOf(s), c.now()))
	}
}

func (c *Controller) onCoolingTick() {
	for fires := c.cooling.Tick(); fires > 0; fires-- {
		if c.plant.CoolingUpdate() {
			c.commit(nil)
		}
	}
}

// commit drives the outputs from plant state and notifies the observer.
func (c *Controller) commit(events []logic.Event) {
	if err := c.io.Write(outputsOf(c.plant)); err != nil {
		log.Printf("control: output write error: %v", err)
	}
	if c.obs != nil {
		c.obs.Observe(c.State(), events)
	}
}

// readMode samples the mode input. On a read error the current mode is kept,
// or Manual if no mode has been entered yet.
func (c *Controller) readMode() logic.Mode {
	s, err := c.io.Read()
	if err != nil {
		log.Printf("control: mode read error: %v", err)
		if c.plant.Mode == "" {
			return logic.ModeManual
		}
		return c.plant.Mode
	}
	return logic.ModeFor(s.Mode)
}

// State returns a copy of the current controller state. It must only be
// called from the goroutine running the controller, or after Run returned.
func (c *Controller) State() State {
	st := State{Plant: *c.plant}
	if c.active != nil {
		st.Cadence = c.active.Name()
	}
	return st
}

func inputOf(s gpio.Sample) logic.Input {
	in := logic.Input{
		Fuel:   logic.FuelSufficient,
		Gear:   logic.GearLow,
		Target: s.Target & logic.TargetMask,
	}
	if !s.FuelOK {
		in.Fuel = logic.FuelLow
	}
	if s.High {
		in.Gear = logic.GearHigh
	}
	return in
}

func outputsOf(p *logic.Plant) gpio.Outputs {
	return gpio.Outputs{
		Turbine:       p.Turbine,
		LowFuelAlert:  p.Alerts.LowFuel,
		HighTempAlert: p.Alerts.HighTemperature,
		Temperature:   p.Thermal.Current,
	}
}

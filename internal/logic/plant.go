package logic

import "time"

// Plant is the complete mutable state of the simulated furnace.
// It is owned by a single goroutine; nothing here is safe for concurrent use.
type Plant struct {
	Thermal ThermalState
	Alerts  Alerts
	Turbine bool
	Mode    Mode
	Counts  EventCounts
}

// NewPlant seeds the plant from the room temperature bus sampled at boot.
// The furnace starts at room temperature with the turbine off and no alerts.
func NewPlant(room uint8) *Plant {
	room &= RoomMask
	return &Plant{
		Thermal: ThermalState{
			Current: room,
			Room:    room,
		},
	}
}

// EvaluateAlerts returns the latched alerts after one evaluation.
// Each alert switches on when its trigger condition holds and off when the
// inverse condition holds; a given alert changes at most once per call.
func EvaluateAlerts(a Alerts, current uint8, fuel FuelLevel) Alerts {
	if current > MaxTemperature && !a.HighTemperature {
		a.HighTemperature = true
	} else if current <= MaxTemperature && a.HighTemperature {
		a.HighTemperature = false
	}

	if fuel == FuelLow && !a.LowFuel {
		a.LowFuel = true
	} else if fuel == FuelSufficient && a.LowFuel {
		a.LowFuel = false
	}
	return a
}

// DecideTurbine returns the turbine state for the current temperatures and
// alerts. The safety guards run after the primary decision and can only turn
// the turbine off.
func DecideTurbine(on bool, t ThermalState, a Alerts) bool {
	if t.Current < t.Target {
		if !on && !a.LowFuel {
			on = true
		}
	} else {
		on = false
	}

	if on && a.HighTemperature {
		on = false
	}
	if on && a.LowFuel {
		on = false
	}
	return on
}

// Respond returns the furnace temperature after one control cycle with the
// turbine in the given state.
func Respond(t ThermalState, on bool, gear Gear) uint8 {
	if on {
		next := t.Current + 1
		if gear == GearHigh {
			next++
		}
		return next
	}
	if t.Current > t.Room {
		return t.Current - 1
	}
	return t.Current
}

// ControlUpdate runs one full control cycle: alerts, then the turbine
// decision, then the temperature response to the decided turbine state.
// It returns the events produced by the cycle, in that order.
func (p *Plant) ControlUpdate(in Input, now time.Time) []Event {
	var types []EventType

	p.Thermal.Target = in.Target & TargetMask

	alerts := EvaluateAlerts(p.Alerts, p.Thermal.Current, in.Fuel)
	types = appendAlertChanges(types, p.Alerts, alerts)
	p.Alerts = alerts

	turbine := DecideTurbine(p.Turbine, p.Thermal, p.Alerts)
	if turbine != p.Turbine {
		types = append(types, turbineEvent(turbine))
	}
	p.Turbine = turbine

	p.Thermal.Current = Respond(p.Thermal, p.Turbine, in.Gear)

	return p.emit(types, now)
}

// CoolingUpdate applies passive heat loss toward room temperature.
// It reports whether the temperature changed.
func (p *Plant) CoolingUpdate() bool {
	if p.Thermal.Current > p.Thermal.Room {
		p.Thermal.Current--
		return true
	}
	return false
}

// ForceTurbineOff switches the turbine off outside of a control cycle.
func (p *Plant) ForceTurbineOff(now time.Time) []Event {
	if !p.Turbine {
		return nil
	}
	p.Turbine = false
	return p.emit([]EventType{EventTurbineOff}, now)
}

// SetMode records a mode transition. Setting the current mode is a no-op.
func (p *Plant) SetMode(m Mode, now time.Time) []Event {
	if p.Mode == m {
		return nil
	}
	p.Mode = m
	t := EventModeManual
	if m == ModeAutomatic {
		t = EventModeAutomatic
	}
	return p.emit([]EventType{t}, now)
}

func (p *Plant) emit(types []EventType, now time.Time) []Event {
	if len(types) == 0 {
		return nil
	}
	events := make([]Event, 0, len(types))
	for _, t := range types {
		p.Counts.Add(t)
		events = append(events, Event{
			Timestamp:   now,
			Type:        t,
			Temperature: p.Thermal.Current,
			Target:      p.Thermal.Target,
			Mode:        p.Mode,
		})
	}
	return events
}

func appendAlertChanges(types []EventType, before, after Alerts) []EventType {
	if before.HighTemperature != after.HighTemperature {
		if after.HighTemperature {
			types = append(types, EventHighTempAlertOn)
		} else {
			types = append(types, EventHighTempAlertOff)
		}
	}
	if before.LowFuel != after.LowFuel {
		if after.LowFuel {
			types = append(types, EventLowFuelAlertOn)
		} else {
			types = append(types, EventLowFuelAlertOff)
		}
	}
	return types
}

func turbineEvent(on bool) EventType {
	if on {
		return EventTurbineOn
	}
	return EventTurbineOff
}

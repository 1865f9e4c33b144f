// Package logic contains the pure control logic of the furnace plant.
// This package has NO external dependencies (no GPIO, MQTT, OS, or timers).
// Every update works on a Plant value and the Input sampled for it.
package logic

import "time"

// Fixed plant parameters.
const (
	MaxTemperature uint8 = 90 // over-temperature alert threshold

	ControlMultiplier = 200 // 200 * 10ms = 2s control cadence
	CoolingMultiplier = 32  // 32 * 65.5ms = ~2.1s cooling cadence

	TargetMask uint8 = 0x7F // 7-bit target temperature bus
	RoomMask   uint8 = 0x1F // 5-bit room temperature bus
)

// Mode is the operating mode selected by the mode command input.
type Mode string

const (
	ModeManual    Mode = "MANUAL"
	ModeAutomatic Mode = "AUTOMATIC"
)

// ModeFor maps the mode command signal to a Mode.
func ModeFor(on bool) Mode {
	if on {
		return ModeAutomatic
	}
	return ModeManual
}

// FuelLevel is the live reading of the fuel sensor.
type FuelLevel string

const (
	FuelSufficient FuelLevel = "SUFFICIENT"
	FuelLow        FuelLevel = "LOW"
)

// Gear is the live reading of the turbine gear input.
type Gear string

const (
	GearLow  Gear = "LOW"
	GearHigh Gear = "HIGH"
)

// Input is a single sample of the live plant inputs used by a control update.
type Input struct {
	Fuel   FuelLevel
	Gear   Gear
	Target uint8 // already masked to 7 bits
}

// ThermalState holds the simulated furnace temperatures.
type ThermalState struct {
	Current uint8
	Target  uint8
	Room    uint8 // floor for passive decay, sampled at boot
}

// Alerts are the two latched fault indicators.
type Alerts struct {
	HighTemperature bool
	LowFuel         bool
}

// EventType represents a change in plant outputs or mode.
type EventType string

const (
	EventTurbineOn        EventType = "TURBINE_ON"
	EventTurbineOff       EventType = "TURBINE_OFF"
	EventHighTempAlertOn  EventType = "HIGH_TEMP_ALERT_ON"
	EventHighTempAlertOff EventType = "HIGH_TEMP_ALERT_OFF"
	EventLowFuelAlertOn   EventType = "LOW_FUEL_ALERT_ON"
	EventLowFuelAlertOff  EventType = "LOW_FUEL_ALERT_OFF"
	EventModeAutomatic    EventType = "MODE_AUTOMATIC"
	EventModeManual       EventType = "MODE_MANUAL"
)

// Event represents a plant change to be published.
type Event struct {
	Timestamp   time.Time
	Type        EventType
	Temperature uint8
	Target      uint8
	Mode        Mode
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	TurbineOn        int
	TurbineOff       int
	HighTempAlertOn  int
	HighTempAlertOff int
	LowFuelAlertOn   int
	LowFuelAlertOff  int
	ModeChanges      int
}

// Add counts a single event.
func (c *EventCounts) Add(t EventType) {
	switch t {
	case EventTurbineOn:
		c.TurbineOn++
	case EventTurbineOff:
		c.TurbineOff++
	case EventHighTempAlertOn:
		c.HighTempAlertOn++
	case EventHighTempAlertOff:
		c.HighTempAlertOff++
	case EventLowFuelAlertOn:
		c.LowFuelAlertOn++
	case EventLowFuelAlertOff:
		c.LowFuelAlertOff++
	case EventModeAutomatic, EventModeManual:
		c.ModeChanges++
	}
}

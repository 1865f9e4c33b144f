package gpio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Bus widths.
const (
	TargetBits      = 7
	RoomBits        = 5
	TemperatureBits = 8
)

// Line is a single GPIO line.
type Line struct {
	Offset    int  `yaml:"offset"`
	ActiveLow bool `yaml:"active_low,omitempty"`
}

// PinMap assigns plant signals to GPIO lines. Buses are listed least
// significant bit first.
type PinMap struct {
	Chip string `yaml:"chip"`

	Mode Line `yaml:"mode"`
	Fuel Line `yaml:"fuel"`
	Gear Line `yaml:"gear"`

	Target []int `yaml:"target"`
	Room   []int `yaml:"room"`

	Turbine       Line  `yaml:"turbine"`
	LowFuelAlert  Line  `yaml:"low_fuel_alert"`
	HighTempAlert Line  `yaml:"high_temp_alert"`
	Temperature   []int `yaml:"temperature"`
}

// DefaultPinMap returns the BCM wiring of the reference board.
func DefaultPinMap() PinMap {
	return PinMap{
		Chip:          "gpiochip0",
		Mode:          Line{Offset: 4},
		Fuel:          Line{Offset: 17},
		Gear:          Line{Offset: 27},
		Target:        []int{22, 23, 24, 25, 5, 6, 12},
		Room:          []int{13, 16, 19, 20, 26},
		Turbine:       Line{Offset: 18},
		LowFuelAlert:  Line{Offset: 2},
		HighTempAlert: Line{Offset: 3},
		Temperature:   []int{7, 8, 9, 10, 11, 21, 0, 1},
	}
}

// LoadPinMap reads a YAML pin map. Fields absent from the file keep their
// default values; unknown fields are rejected.
func LoadPinMap(path string) (PinMap, error) {
	pm := DefaultPinMap()
	data, err := os.ReadFile(path)
	if err != nil {
		return pm, fmt.Errorf("read pin map: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pm); err != nil && !errors.Is(err, io.EOF) {
		return pm, fmt.Errorf("parse pin map %s: %w", path, err)
	}
	if err := pm.Validate(); err != nil {
		return pm, fmt.Errorf("pin map %s: %w", path, err)
	}
	return pm, nil
}

// Validate checks bus widths and that no line is used twice.
func (pm PinMap) Validate() error {
	if pm.Chip == "" {
		return errors.New("chip is required")
	}
	if len(pm.Target) != TargetBits {
		return fmt.Errorf("target bus needs %d lines, got %d", TargetBits, len(pm.Target))
	}
	if len(pm.Room) != RoomBits {
		return fmt.Errorf("room bus needs %d lines, got %d", RoomBits, len(pm.Room))
	}
	if len(pm.Temperature) != TemperatureBits {
		return fmt.Errorf("temperature bus needs %d lines, got %d", TemperatureBits, len(pm.Temperature))
	}

	seen := make(map[int]string)
	check := func(name string, offset int) error {
		if offset < 0 {
			return fmt.Errorf("%s: negative offset %d", name, offset)
		}
		if prev, ok := seen[offset]; ok {
			return fmt.Errorf("line %d used by both %s and %s", offset, prev, name)
		}
		seen[offset] = name
		return nil
	}

	singles := []struct {
		name string
		line Line
	}{
		{"mode", pm.Mode},
		{"fuel", pm.Fuel},
		{"gear", pm.Gear},
		{"turbine", pm.Turbine},
		{"low_fuel_alert", pm.LowFuelAlert},
		{"high_temp_alert", pm.HighTempAlert},
	}
	for _, s := range singles {
		if err := check(s.name, s.line.Offset); err != nil {
			return err
		}
	}
	buses := []struct {
		name    string
		offsets []int
	}{
		{"target", pm.Target},
		{"room", pm.Room},
		{"temperature", pm.Temperature},
	}
	for _, b := range buses {
		for i, off := range b.offsets {
			if err := check(fmt.Sprintf("%s[%d]", b.name, i), off); err != nil {
				return err
			}
		}
	}
	return nil
}

package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/furnace-controller/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	Mode          string          `json:"mode"`
	Turbine       string          `json:"turbine"`
	Temperature   TemperatureJSON `json:"temperature"`
	Alerts        AlertsJSON      `json:"alerts"`
	Cadence       string          `json:"cadence,omitempty"`
	Ready         bool            `json:"ready"`
	BootID        string          `json:"boot_id"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Counts        CountsJSON      `json:"event_counts"`
	Network       *NetworkJSON    `json:"network,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// TemperatureJSON reports the furnace temperatures.
type TemperatureJSON struct {
	Current int `json:"current"`
	Target  int `json:"target"`
	Room    int `json:"room"`
	Max     int `json:"max"`
}

// AlertsJSON reports the two alert indicators.
type AlertsJSON struct {
	HighTemperature bool `json:"high_temperature"`
	LowFuel         bool `json:"low_fuel"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	TurbineOn        int `json:"turbine_on"`
	TurbineOff       int `json:"turbine_off"`
	HighTempAlertOn  int `json:"high_temp_alert_on"`
	HighTempAlertOff int `json:"high_temp_alert_off"`
	LowFuelAlertOn   int `json:"low_fuel_alert_on"`
	LowFuelAlertOff  int `json:"low_fuel_alert_off"`
	ModeChanges      int `json:"mode_changes"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	ModePollMs      int64  `json:"mode_poll_ms"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	ControlPeriodMs int64  `json:"control_period_ms"`
	CoolingPeriodMs int64  `json:"cooling_period_ms"`
	Broker          string `json:"broker"`
	HTTPAddr        string `json:"http_addr"`
	Chip            string `json:"chip,omitempty"`
	LiveUpdates     bool   `json:"live_updates"`
	Simulated       bool   `json:"simulated,omitempty"`
}

// OnOff renders a boolean output as ON/OFF.
func OnOff(b bool) string {
	if b {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	mode := string(snap.Mode)
	if mode == "" {
		mode = "UNKNOWN"
	}

	return StatusInner{
		Mode:    mode,
		Turbine: OnOff(snap.Turbine),
		Temperature: TemperatureJSON{
			Current: int(snap.Thermal.Current),
			Target:  int(snap.Thermal.Target),
			Room:    int(snap.Thermal.Room),
			Max:     int(logic.MaxTemperature),
		},
		Alerts: AlertsJSON{
			HighTemperature: snap.Alerts.HighTemperature,
			LowFuel:         snap.Alerts.LowFuel,
		},
		Cadence:       snap.Cadence,
		Ready:         snap.Ready,
		BootID:        snap.BootID,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			TurbineOn:        snap.Counts.TurbineOn,
			TurbineOff:       snap.Counts.TurbineOff,
			HighTempAlertOn:  snap.Counts.HighTempAlertOn,
			HighTempAlertOff: snap.Counts.HighTempAlertOff,
			LowFuelAlertOn:   snap.Counts.LowFuelAlertOn,
			LowFuelAlertOff:  snap.Counts.LowFuelAlertOff,
			ModeChanges:      snap.Counts.ModeChanges,
		},
		Config: ConfigJSON{
			ModePollMs:      snap.Config.ModePollMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			ControlPeriodMs: snap.Config.ControlPeriodMs,
			CoolingPeriodMs: snap.Config.CoolingPeriodMs,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
			Chip:            snap.Config.Chip,
			LiveUpdates:     snap.Config.LiveUpdates,
			Simulated:       snap.Config.Simulated,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

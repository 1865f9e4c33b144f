// Package status provides a thread-safe status tracker for the furnace-controller daemon.
// It is written by the controller goroutine and read by HTTP handlers and
// the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/furnace-controller/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	ModePollMs      int64
	HeartbeatMs     int64
	ControlPeriodMs int64
	CoolingPeriodMs int64
	Broker          string
	HTTPAddr        string
	Chip            string
	LiveUpdates     bool // websocket push enabled
	Simulated       bool // running against in-memory I/O
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Mode          logic.Mode
	Thermal       logic.ThermalState
	Alerts        logic.Alerts
	Turbine       bool
	Cadence       string
	Counts        logic.EventCounts
	Ready         bool // controller has reported at least once
	BootID        string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu      sync.RWMutex
	snap    Snapshot
	changed chan struct{}
}

// NewTracker creates a Tracker with the given start time, boot ID and config.
func NewTracker(startTime time.Time, bootID string, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			BootID:    bootID,
			StartTime: startTime,
			Config:    cfg,
		},
		changed: make(chan struct{}),
	}
}

// Update records the plant state and the armed cadence.
// Called from the controller goroutine after every change.
func (t *Tracker) Update(p logic.Plant, cadence string) {
	t.mu.Lock()
	t.snap.Mode = p.Mode
	t.snap.Thermal = p.Thermal
	t.snap.Alerts = p.Alerts
	t.snap.Turbine = p.Turbine
	t.snap.Counts = p.Counts
	t.snap.Cadence = cadence
	t.snap.Ready = true
	t.notifyLocked()
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	if t.snap.MQTTConnected != connected {
		t.snap.MQTTConnected = connected
		t.notifyLocked()
	}
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.notifyLocked()
	t.mu.Unlock()
}

// Changed returns a channel that is closed on the next state change.
func (t *Tracker) Changed() <-chan struct{} {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.changed
}

func (t *Tracker) notifyLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

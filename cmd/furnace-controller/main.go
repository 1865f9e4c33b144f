// Command furnace-controller drives a turbine furnace from GPIO inputs and
// publishes plant events to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sweeney/furnace-controller/internal/control"
	"github.com/sweeney/furnace-controller/internal/gpio"
	"github.com/sweeney/furnace-controller/internal/logic"
	"github.com/sweeney/furnace-controller/internal/mqtt"
	"github.com/sweeney/furnace-controller/internal/status"
	"github.com/sweeney/furnace-controller/internal/tick"
	"github.com/sweeney/furnace-controller/internal/web"
)

// eventQueueSize bounds plant events waiting for the MQTT publisher.
const eventQueueSize = 256

type options struct {
	broker     string
	heartbeat  time.Duration
	httpAddr   string
	live       bool
	modePoll   time.Duration
	chip       string
	pins       string
	printState bool
	simulate   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.DurationVar(&opts.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&opts.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.BoolVar(&opts.live, "ws", true, "Push live status over websocket at /ws")
	flag.DurationVar(&opts.modePoll, "mode-poll", time.Second, "Mode input poll interval in addition to edge events (0 to disable)")
	flag.StringVar(&opts.chip, "chip", "", "GPIO chip (overrides the pin map)")
	flag.StringVar(&opts.pins, "pins", "", "YAML pin map file (empty for built-in defaults)")
	flag.BoolVar(&opts.printState, "print-state", false, "Print current inputs and exit")
	flag.BoolVar(&opts.simulate, "simulate", false, "Run against in-memory I/O instead of GPIO")

	flag.Parse()

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	io, chip, err := openIO(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := io.Close(); err != nil {
			log.Printf("gpio close: %v", err)
		}
	}()

	// Print state mode
	if opts.printState {
		s, err := io.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Println(formatSample(s))
		return nil
	}

	bootID := uuid.NewString()

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(opts.broker, "furnace-controller-"+bootID[:8])
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), bootID, status.Config{
		ModePollMs:      opts.modePoll.Milliseconds(),
		HeartbeatMs:     opts.heartbeat.Milliseconds(),
		ControlPeriodMs: (tick.ControlPeriod * logic.ControlMultiplier).Milliseconds(),
		CoolingPeriodMs: (tick.CoolingPeriod * logic.CoolingMultiplier).Milliseconds(),
		Broker:          opts.broker,
		HTTPAddr:        opts.httpAddr,
		Chip:            chip,
		LiveUpdates:     opts.live,
		Simulated:       opts.simulate,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	events := make(chan logic.Event, eventQueueSize)
	controlSrc := tick.NewTickerSource(tick.ControlPeriod)
	defer controlSrc.Close()
	coolingSrc := tick.NewTickerSource(tick.CoolingPeriod)
	defer coolingSrc.Close()

	var modePoll <-chan time.Time
	if opts.modePoll > 0 {
		t := time.NewTicker(opts.modePoll)
		defer t.Stop()
		modePoll = t.C
	}

	ctrl, err := control.New(control.Config{
		IO:       io,
		Control:  controlSrc,
		Cooling:  coolingSrc,
		ModePoll: modePoll,
		Observer: &eventQueue{tracker: tracker, events: events},
	})
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}
	tracker.Update(ctrl.State().Plant, "")

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server
	if opts.httpAddr != "" {
		srv := web.New(opts.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", opts.httpAddr)
	}

	log.Printf("started: boot=%s chip=%s broker=%s heartbeat=%v mode-poll=%v simulate=%v",
		bootID, chip, opts.broker, opts.heartbeat, opts.modePoll, opts.simulate)

	ctx, cancel := context.WithCancel(context.Background())
	ctrlDone := make(chan struct{})
	go func() {
		defer close(ctrlDone)
		ctrl.Run(ctx)
	}()
	// Stop the controller before the deferred io.Close runs.
	defer func() {
		cancel()
		<-ctrlDone
	}()

	var heartbeat <-chan time.Time
	if opts.heartbeat > 0 {
		t := time.NewTicker(opts.heartbeat)
		defer t.Stop()
		heartbeat = t.C
	}

	refresh := time.NewTicker(time.Second)
	defer refresh.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(events, publisher, publisher, tracker, time.Now, refresh.C, heartbeat, sigCh)
}

// openIO returns the plant I/O and the chip name to report.
func openIO(opts options) (gpio.IO, string, error) {
	if opts.simulate {
		log.Printf("simulate: using in-memory I/O (automatic, target 50, room 21)")
		return gpio.NewFakeIO(gpio.Sample{Mode: true, FuelOK: true, Target: 50, Room: 21}), "simulated", nil
	}

	pm := gpio.DefaultPinMap()
	if opts.pins != "" {
		var err error
		if pm, err = gpio.LoadPinMap(opts.pins); err != nil {
			return nil, "", fmt.Errorf("load pin map: %w", err)
		}
	}
	if opts.chip != "" {
		pm.Chip = opts.chip
	}

	rio, err := gpio.NewRealIO(pm)
	if err != nil {
		return nil, "", fmt.Errorf("init gpio: %w", err)
	}
	return rio, pm.Chip, nil
}

// eventQueue is the controller observer. It updates the status tracker and
// hands plant events to the publisher loop without blocking the controller.
type eventQueue struct {
	tracker *status.Tracker
	events  chan<- logic.Event
}

func (q *eventQueue) Observe(st control.State, events []logic.Event) {
	q.tracker.Update(st.Plant, st.Cadence)
	for _, e := range events {
		log.Printf("event: %s (temperature=%d target=%d mode=%s)", e.Type, e.Temperature, e.Target, e.Mode)
		select {
		case q.events <- e:
		default:
			log.Printf("event queue full, dropping %s", e.Type)
		}
	}
}

func runLoop(events <-chan logic.Event, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, refresh, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case e := <-events:
			if err := publisher.Publish(e); err != nil {
				log.Printf("publish error: %v", err)
				// Don't crash on publish failure
			}

		case <-refresh:
			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}

		case <-heartbeat:
			hbEvent := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				c := snap.Counts
				log.Printf("heartbeat: uptime=%v mode=%s temperature=%d turbine_on=%d turbine_off=%d mode_changes=%d",
					snap.Uptime().Truncate(time.Second), snap.Mode, snap.Thermal.Current, c.TurbineOn, c.TurbineOff, c.ModeChanges)
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// formatSample renders one read of the inputs for -print-state.
func formatSample(s gpio.Sample) string {
	fuel := "OK"
	if !s.FuelOK {
		fuel = "LOW"
	}
	gear := "LOW"
	if s.High {
		gear = "HIGH"
	}
	return fmt.Sprintf("mode: %s, fuel: %s, gear: %s, target: %d, room: %d",
		logic.ModeFor(s.Mode), fuel, gear, s.Target&logic.TargetMask, s.Room&logic.RoomMask)
}

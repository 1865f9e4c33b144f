package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/furnace-controller/internal/logic"
	"github.com/sweeney/furnace-controller/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"modeOrUnknown": func(m logic.Mode) string {
		if m == "" {
			return "UNKNOWN"
		}
		return string(m)
	},
	"onOff": status.OnOff,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Furnace Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.alert { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Furnace Controller{{if .Config.LiveUpdates}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Plant</h2>
<table>
<tr><th>Mode</th><td id="mode">{{modeOrUnknown .Mode}}</td></tr>
<tr><th>Turbine</th><td id="turbine" class="{{if .Turbine}}on{{else}}off{{end}}">{{onOff .Turbine}}</td></tr>
<tr><th>Temperature</th><td id="temp-current">{{.Thermal.Current}}</td></tr>
<tr><th>Target</th><td id="temp-target">{{.Thermal.Target}}</td></tr>
<tr><th>Room</th><td id="temp-room">{{.Thermal.Room}}</td></tr>
<tr><th>High temperature alert</th><td id="alert-high" class="{{if .Alerts.HighTemperature}}alert{{else}}off{{end}}">{{onOff .Alerts.HighTemperature}}</td></tr>
<tr><th>Low fuel alert</th><td id="alert-fuel" class="{{if .Alerts.LowFuel}}alert{{else}}off{{end}}">{{onOff .Alerts.LowFuel}}</td></tr>
<tr><th>Cadence</th><td id="cadence">{{if .Cadence}}{{.Cadence}}{{else}}none{{end}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Turbine ON</th><td>{{.Counts.TurbineOn}}</td></tr>
<tr><th>Turbine OFF</th><td>{{.Counts.TurbineOff}}</td></tr>
<tr><th>High temp alert ON</th><td>{{.Counts.HighTempAlertOn}}</td></tr>
<tr><th>High temp alert OFF</th><td>{{.Counts.HighTempAlertOff}}</td></tr>
<tr><th>Low fuel alert ON</th><td>{{.Counts.LowFuelAlertOn}}</td></tr>
<tr><th>Low fuel alert OFF</th><td>{{.Counts.LowFuelAlertOff}}</td></tr>
<tr><th>Mode changes</th><td>{{.Counts.ModeChanges}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot ID</th><td>{{.BootID}}</td></tr>
<tr><th>Control period</th><td>{{.Config.ControlPeriodMs}}ms</td></tr>
<tr><th>Cooling period</th><td>{{.Config.CoolingPeriodMs}}ms</td></tr>
<tr><th>Mode poll</th><td>{{if eq .Config.ModePollMs 0}}disabled{{else}}{{.Config.ModePollMs}}ms{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>GPIO</th><td>{{if .Config.Simulated}}simulated{{else}}{{.Config.Chip}}{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.LiveUpdates}}
<script>
(function() {
  var dot = document.getElementById("live-dot");

  function text(id, v) { document.getElementById(id).textContent = v; }

  function flag(id, on, cls) {
    var el = document.getElementById(id);
    el.textContent = on ? "ON" : "OFF";
    el.className = on ? cls : "off";
  }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        text("mode", s.mode);
        flag("turbine", s.turbine === "ON", "on");
        text("temp-current", s.temperature.current);
        text("temp-target", s.temperature.target);
        text("temp-room", s.temperature.room);
        flag("alert-high", s.alerts.high_temperature, "alert");
        flag("alert-fuel", s.alerts.low_fuel, "alert");
        text("cadence", s.cadence || "none");
      } catch (e) {}
    };
  }

  connect();
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}

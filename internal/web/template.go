package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/cluster-sensor/internal/sensor"
	"github.com/sweeney/cluster-sensor/internal/status"
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
	"reading": func(c sensor.ChannelStatus) string {
		switch {
		case c.Degraded:
			return "DEGRADED"
		case c.Value == nil:
			return "UNKNOWN"
		case c.Value.Unit() == "":
			return c.Value.String()
		}
		return c.Value.String() + " " + c.Value.Unit()
	},
	"readingClass": func(c sensor.ChannelStatus) string {
		switch {
		case c.Degraded:
			return "degraded"
		case c.Value == nil:
			return "unknown"
		}
		return "value"
	},
	"ms": func(d time.Duration) int64 { return d.Milliseconds() },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Cluster Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.value { font-weight: bold; }
.unknown { color: orange; }
.degraded { color: red; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Cluster Sensor</h1>

<h2>Sensors</h2>
<table>
<tr><th>Health</th><td class="{{if eq .Health "OK"}}connected{{else}}degraded{{end}}">{{if .Health}}{{.Health}}{{else}}UNKNOWN{{end}}</td></tr>
{{range .Channels}}<tr><th>{{.Kind}}</th><td id="{{.Kind}}" class="{{readingClass .}}">{{reading .}}</td></tr>
{{end}}<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic prefix</th><td>{{.Config.TopicPrefix}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Notifications</h2>
<table>
{{range .Channels}}<tr><th>{{.Kind}}</th><td>{{.Dispatched}}</td></tr>
{{end}}</table>

{{if .Tasks}}<h2>Tasks</h2>
<table>
<tr><th>Name</th><td>period / priority / runs / panics</td></tr>
{{range .Tasks}}<tr><th>{{.Name}}</th><td>{{ms .Period}}ms / {{.Priority}} / {{.Runs}} / {{.Panics}}</td></tr>
{{end}}</table>
{{end}}
<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Backend</th><td>{{.Config.Backend}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
<tr><th>Log level</th><td>{{.Config.LogLevel}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() and Ready() methods but the template wants fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Ready  bool
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Ready:    snap.Ready(),
	}
	indexTmpl.Execute(w, data)
}

package health

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"sort"
)

type dashboardDep struct {
	Name   string
	Status string
	Ping   string
	OK     bool
}

type dashboardData struct {
	Network     string
	Headline    string
	Healthy     bool
	Traffic     TrafficInfo
	AvgTime     string
	Runtime     RuntimeInfo
	Deps        []dashboardDep
	LastMethod  string
	LastPath    string
	PayloadJSON template.JS
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Houseform · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    :root { --blue: #2563eb; --dark: #0f172a; --muted: #64748b; --bg: #f8fafc; --red: #ef4444; --green: #16a34a; }
    body { background: var(--bg); color: var(--dark); font-family: system-ui, sans-serif; margin: 0; display: flex; justify-content: center; padding: 48px 16px; }
    .container { width: 100%; max-width: 1000px; }
    header { display: flex; justify-content: space-between; align-items: baseline; }
    .brand { font-weight: 900; font-size: 24px; letter-spacing: -1px; }
    .network { font-size: 12px; font-weight: 800; text-transform: uppercase; color: var(--muted); }
    h1 { font-size: clamp(28px, 5vw, 52px); margin: 24px 0; letter-spacing: -2px; }
    h1.ok { color: var(--blue); }
    h1.issue { color: var(--red); }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); background: white; border-radius: 24px; box-shadow: 0 20px 60px -20px rgba(15, 23, 42, 0.15); }
    .col { padding: 32px; border-right: 1px solid #f1f5f9; }
    .col:last-child { border-right: none; }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 900; letter-spacing: 2px; color: #94a3b8; margin-bottom: 16px; }
    .big { font-size: 40px; font-weight: 900; margin-bottom: 8px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; font-size: 14px; font-weight: 600; border-bottom: 1px solid #f8fafc; }
    .pill { padding: 3px 10px; border-radius: 8px; font-size: 11px; font-weight: 900; }
    .pill.ok { background: rgba(22, 163, 74, 0.1); color: var(--green); }
    .pill.err { background: rgba(239, 68, 68, 0.1); color: var(--red); }
    footer { margin-top: 24px; font-family: monospace; font-size: 13px; color: var(--muted); display: flex; justify-content: space-between; }
    a { color: var(--blue); }
    @media (max-width: 800px) { .grid { grid-template-columns: 1fr; } .col { border-right: none; } }
  </style>
</head>
<body>
  <div class="container">
    <header><span class="brand">Houseform API</span><span class="network">{{.Network}}</span></header>
    <h1 id="headline" class="{{if .Healthy}}ok{{else}}issue{{end}}">{{.Headline}}</h1>
    <div class="grid">
      <div class="col">
        <div class="label">Traffic</div>
        <div class="big">{{.Traffic.TotalRequests}}</div>
        <div class="row"><span>Successful</span><span>{{.Traffic.SuccessCount}}</span></div>
        <div class="row"><span>Failed</span><span>{{.Traffic.FailedCount}}</span></div>
        <div class="row"><span>Success Rate</span><span>{{.Traffic.SuccessRate}}%</span></div>
        <div class="row"><span>Avg Latency</span><span>{{.AvgTime}}ms</span></div>
      </div>
      <div class="col">
        <div class="label">Runtime</div>
        <div class="big">{{.Runtime.UptimeSeconds}}s</div>
        <div class="row"><span>Heap Used</span><span>{{.Runtime.Memory.HeapUsed}} MB</span></div>
        <div class="row"><span>Goroutines</span><span>{{.Runtime.Goroutines}}</span></div>
        <div class="row"><span>Go</span><span>{{.Runtime.GoVersion}}</span></div>
        <div class="row"><span>Platform</span><span>{{.Runtime.Platform}}</span></div>
      </div>
      <div class="col">
        <div class="label">Connectivity</div>
        {{range .Deps}}<div class="row"><span>{{.Name}}</span><span class="pill {{if .OK}}ok{{else}}err{{end}}">{{.Status}} · {{.Ping}}</span></div>
        {{end}}
      </div>
    </div>
    <footer>
      <span>LAST INBOUND {{.LastMethod}} {{.LastPath}}</span>
      <span><a href="/health/json">/health/json</a> · <a href="/health/errors">/health/errors</a></span>
    </footer>
  </div>
  <script>
    window.__HEALTH__ = {{.PayloadJSON}};
    setInterval(async () => {
      try {
        const d = await (await fetch('/health/json')).json();
        const hl = document.getElementById('headline');
        hl.className = d.status === 'ok' ? 'ok' : 'issue';
        hl.innerText = d.status === 'ok' ? 'All Systems Operational' : 'System Issues Detected';
      } catch (e) {}
    }, 10000);
  </script>
</body>
</html>`))

// RenderDashboardHTML returns the HTML for GET /.
func RenderDashboardHTML(health CollectResult, network string) string {
	data := dashboardData{
		Network:    network,
		Healthy:    health.Status == "ok",
		Traffic:    health.Traffic,
		AvgTime:    fmt.Sprint(health.Traffic.AvgResponseTime),
		Runtime:    health.Runtime,
		LastMethod: "-",
		LastPath:   "-",
	}
	data.Headline = "System Issues Detected"
	if data.Healthy {
		data.Headline = "All Systems Operational"
	}
	if m, ok := health.Traffic.LastRequest.(map[string]interface{}); ok {
		if v, ok := m["method"].(string); ok {
			data.LastMethod = v
		}
		if v, ok := m["path"].(string); ok {
			data.LastPath = v
		}
	}

	names := make([]string, 0, len(health.Dependencies))
	for name := range health.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		dep := health.Dependencies[name]
		ping := "--"
		if p, ok := dep.PingMs.(*int64); ok && p != nil {
			ping = fmt.Sprintf("%d ms", *p)
		}
		data.Deps = append(data.Deps, dashboardDep{
			Name:   name,
			Status: dep.Status,
			Ping:   ping,
			OK:     dep.Status == "connected",
		})
	}

	payload, _ := json.Marshal(health)
	data.PayloadJSON = template.JS(payload)

	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, data); err != nil {
		return "<!DOCTYPE html><p>dashboard unavailable</p>"
	}
	return buf.String()
}

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "grayhub"

// metrics owns the server's Prometheus registry. Each Server has its own,
// so several can coexist in one process.
type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

func newMetrics(s *Server) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		newHubCollector(s),
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observe counts a finished request under its chi route pattern, so entity
// IDs do not become label values.
func (m *metrics) observe(r *http.Request, status int) {
	route := "unmatched"
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		route = rc.RoutePattern()
	}
	m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
}

// hubCollector reads entity, bridge and entry state at scrape time.
type hubCollector struct {
	s *Server

	buildInfo        *prometheus.Desc
	entities         *prometheus.Desc
	wsClients        *prometheus.Desc
	commandsReceived *prometheus.Desc
	commandsFailed   *prometheus.Desc
	statesPublished  *prometheus.Desc
	entryReady       *prometheus.Desc
	entryUpdateOK    *prometheus.Desc
	sdkUp            *prometheus.Desc
	sdkRestarts      *prometheus.Desc
}

func newHubCollector(s *Server) *hubCollector {
	entryLabels := []string{"domain", "entry_id"}
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(metricsNamespace, "", name), help, labels, nil)
	}
	return &hubCollector{
		s:                s,
		buildInfo:        desc("build_info", "Hub build information.", "version"),
		entities:         desc("entities", "Registered entities by platform.", "platform"),
		wsClients:        desc("websocket_clients", "Connected WebSocket clients."),
		commandsReceived: desc("bridge_commands_received_total", "Entity commands received by the bridge."),
		commandsFailed:   desc("bridge_commands_failed_total", "Entity commands that failed."),
		statesPublished:  desc("bridge_states_published_total", "Entity states published on the bus."),
		entryReady:       desc("entry_ready", "Whether an integration entry has registered its entities.", entryLabels...),
		entryUpdateOK:    desc("entry_last_update_success", "Whether the entry's last vendor snapshot succeeded.", entryLabels...),
		sdkUp:            desc("sdk_up", "Whether the entry's vendor SDK process is running.", entryLabels...),
		sdkRestarts:      desc("sdk_restarts", "Restarts of the entry's vendor SDK process since it last ran stably.", entryLabels...),
	}
}

func (c *hubCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.buildInfo, c.entities, c.wsClients,
		c.commandsReceived, c.commandsFailed, c.statesPublished,
		c.entryReady, c.entryUpdateOK, c.sdkUp, c.sdkRestarts,
	} {
		ch <- d
	}
}

func (c *hubCollector) Collect(ch chan<- prometheus.Metric) {
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}

	gauge(c.buildInfo, 1, c.s.version)
	for platform, n := range c.s.registry.CountByPlatform() {
		gauge(c.entities, float64(n), string(platform))
	}
	gauge(c.wsClients, float64(c.s.hub.ClientCount()))

	if c.s.bridge != nil {
		st := c.s.bridge.Statistics()
		ch <- prometheus.MustNewConstMetric(c.commandsReceived, prometheus.CounterValue, float64(st.CommandsReceived))
		ch <- prometheus.MustNewConstMetric(c.commandsFailed, prometheus.CounterValue, float64(st.CommandsFailed))
		ch <- prometheus.MustNewConstMetric(c.statesPublished, prometheus.CounterValue, float64(st.StatesPublished))
	}

	if c.s.entries == nil {
		return
	}
	for _, e := range c.s.entries() {
		gauge(c.entryReady, boolValue(e.Ready), e.Domain, e.EntryID)
		gauge(c.entryUpdateOK, boolValue(e.LastUpdateSuccess), e.Domain, e.EntryID)
		if e.SDK != nil {
			gauge(c.sdkUp, boolValue(e.SDK.PID != 0), e.Domain, e.EntryID)
			gauge(c.sdkRestarts, float64(e.SDK.RestartCount), e.Domain, e.EntryID)
		}
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Package observability holds the Prometheus collectors of the tracker and
// the helpers that wire them into echo and the live path.
package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tracker/internal/core/application/registry"
)

// TrackerCollector bundles the tracker metrics. All methods are safe on a
// nil receiver so metrics stay optional in tests.
type TrackerCollector struct {
	gatherer prometheus.Gatherer

	IngestTotal       *prometheus.CounterVec
	BroadcastTotal    *prometheus.CounterVec
	BrokerDrops       *prometheus.CounterVec
	OutboundDrops     prometheus.Counter
	ConnectedChannels prometheus.Gauge
	IdentifiedAgents  prometheus.Gauge
	HTTPRequests      *prometheus.CounterVec
	HTTPDurations     *prometheus.HistogramVec
}

// NewTrackerCollector registers the tracker metrics against reg, defaulting
// to the global Prometheus registry when nil.
func NewTrackerCollector(reg prometheus.Registerer) (*TrackerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ingest, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_coordinate_reports_total",
		Help: "Live coordinate reports, labeled by outcome.",
	}, []string{"outcome"}), "tracker_coordinate_reports_total")
	if err != nil {
		return nil, err
	}

	broadcast, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_broadcast_deliveries_total",
		Help: "Position update deliveries to live channels, labeled by result.",
	}, []string{"result"}), "tracker_broadcast_deliveries_total")
	if err != nil {
		return nil, err
	}

	brokerDrops, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_broker_dropped_events_total",
		Help: "Events dropped by the in-process broker because a subscriber was full.",
	}, []string{"topic"}), "tracker_broker_dropped_events_total")
	if err != nil {
		return nil, err
	}

	outbound, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tracker_channel_outbound_dropped_total",
		Help: "Frames dropped because a live channel's send queue was full.",
	}), "tracker_channel_outbound_dropped_total")
	if err != nil {
		return nil, err
	}

	connected, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_connected_channels",
		Help: "Open live channels, identified or not.",
	}), "tracker_connected_channels")
	if err != nil {
		return nil, err
	}

	identified, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_identified_agents",
		Help: "Agents with a registered live channel.",
	}), "tracker_identified_agents")
	if err != nil {
		return nil, err
	}

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_http_requests_total",
		Help: "Handled HTTP requests, labeled by method, route and status code.",
	}, []string{"method", "route", "code"}), "tracker_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"method", "route"}), "tracker_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &TrackerCollector{
		gatherer:          gatherer,
		IngestTotal:       ingest,
		BroadcastTotal:    broadcast,
		BrokerDrops:       brokerDrops,
		OutboundDrops:     outbound,
		ConnectedChannels: connected,
		IdentifiedAgents:  identified,
		HTTPRequests:      requests,
		HTTPDurations:     durations,
	}, nil
}

// IngestObserved counts one live report outcome.
func (c *TrackerCollector) IngestObserved(outcome string) {
	if c == nil {
		return
	}
	c.IngestTotal.WithLabelValues(outcome).Inc()
}

// BroadcastObserved counts the deliveries of one broadcast.
func (c *TrackerCollector) BroadcastObserved(res registry.BroadcastResult) {
	if c == nil {
		return
	}
	c.BroadcastTotal.WithLabelValues("delivered").Add(float64(res.Delivered))
	c.BroadcastTotal.WithLabelValues("dropped").Add(float64(res.Dropped))
	c.BroadcastTotal.WithLabelValues("skipped").Add(float64(res.Skipped))
}

// BrokerDropped counts an event the broker could not hand to a subscriber.
func (c *TrackerCollector) BrokerDropped(topic string) {
	if c == nil {
		return
	}
	c.BrokerDrops.WithLabelValues(topic).Inc()
}

// OutboundDropped counts a frame a live channel could not queue.
func (c *TrackerCollector) OutboundDropped() {
	if c == nil {
		return
	}
	c.OutboundDrops.Inc()
}

// SetRegistryCounts updates the registry gauges.
func (c *TrackerCollector) SetRegistryCounts(connected, identified int) {
	if c == nil {
		return
	}
	c.ConnectedChannels.Set(float64(connected))
	c.IdentifiedAgents.Set(float64(identified))
}

// EchoMiddleware records request counts and durations by route template.
func (c *TrackerCollector) EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if c == nil {
				return err
			}

			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			code := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					code = he.Code
				} else if code < http.StatusBadRequest {
					code = http.StatusInternalServerError
				}
			}

			method := ctx.Request().Method
			c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
			c.HTTPDurations.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *TrackerCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// register adds collector to reg, reusing an existing collector of the same
// type when one is already registered under name.
func register[C prometheus.Collector](reg prometheus.Registerer, collector C, name string) (C, error) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero C
		return zero, err
	}
	return collector, nil
}

// Package metrics exposes the service's Prometheus metrics on a private
// registry.
package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	ActiveAnimators prometheus.Gauge

	AnimationsStarted prometheus.Counter
	AnimationsEnded   prometheus.Counter
	AnimationsLooped  prometheus.Counter

	Published          prometheus.Counter
	PublishErrs        prometheus.Counter
	OutboxDropped      prometheus.Counter
	PublisherConnected prometheus.Gauge

	FrameDuration   prometheus.Histogram
	PublishDuration prometheus.Histogram

	SpeedMultiplier prometheus.Gauge
	FrameInterval   prometheus.Gauge // seconds
}

func NewCollector(speedMultiplier float64, frameInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveAnimators: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animator_active",
			Help: "Animators currently running or paused.",
		}),
		AnimationsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animator_started_total",
			Help: "Animations started, including restarts by move-to.",
		}),
		AnimationsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animator_ended_total",
			Help: "Animations that reached their end or were stopped.",
		}),
		AnimationsLooped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animator_loops_total",
			Help: "Completed laps of looping animations.",
		}),
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animator_messages_published_total",
			Help: "Position and event messages published.",
		}),
		PublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animator_publish_errors_total",
			Help: "Failed publishes.",
		}),
		OutboxDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "animator_outbox_dropped_total",
			Help: "Messages dropped because the publish queue was full.",
		}),
		PublisherConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animator_publisher_connected",
			Help: "1 if the broker connection is up, 0 otherwise.",
		}),
		FrameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "animator_frame_duration_seconds",
			Help:    "Time spent running the callbacks of one frame.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "animator_publish_duration_seconds",
			Help:    "Time to marshal and hand a message to the broker client.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		SpeedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animator_speed_multiplier",
			Help: "Factor every route duration is divided by.",
		}),
		FrameInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "animator_frame_interval_seconds",
			Help: "Frame loop period in seconds.",
		}),
	}

	reg.MustRegister(
		c.ActiveAnimators,
		c.AnimationsStarted, c.AnimationsEnded, c.AnimationsLooped,
		c.Published, c.PublishErrs, c.OutboxDropped, c.PublisherConnected,
		c.FrameDuration, c.PublishDuration,
		c.SpeedMultiplier, c.FrameInterval,
	)

	c.SpeedMultiplier.Set(speedMultiplier)
	c.FrameInterval.Set(frameInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}

// PublisherMetrics adapts the collector to the publisher's metrics hooks.
func (c *Collector) PublisherMetrics() *PublisherHooks { return &PublisherHooks{c: c} }

type PublisherHooks struct{ c *Collector }

func (p *PublisherHooks) PublishedInc()                  { p.c.Published.Inc() }
func (p *PublisherHooks) PublishErrInc()                 { p.c.PublishErrs.Inc() }
func (p *PublisherHooks) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *PublisherHooks) SetConnected(b bool) {
	if b {
		p.c.PublisherConnected.Set(1)
	} else {
		p.c.PublisherConnected.Set(0)
	}
}

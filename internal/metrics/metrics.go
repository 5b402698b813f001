package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"umcn/pkg/mcn"
)

// BusCollector exposes per-topic bus state to Prometheus. It walks the topic
// registry on every scrape, so hubs advertised after startup show up without
// re-registration.
type BusCollector struct {
	frequency   *prometheus.Desc
	subscribers *prometheus.Desc
	suspended   *prometheus.Desc
	publishes   *prometheus.Desc
}

// NewBusCollector creates a collector over the advertised-topic registry.
func NewBusCollector() *BusCollector {
	return &BusCollector{
		frequency: prometheus.NewDesc(
			"umcn_topic_frequency_hz",
			"Estimated publish rate per topic over the frequency window",
			[]string{"topic"}, nil,
		),
		subscribers: prometheus.NewDesc(
			"umcn_topic_subscribers",
			"Current number of subscribers per topic",
			[]string{"topic"}, nil,
		),
		suspended: prometheus.NewDesc(
			"umcn_topic_suspended",
			"Whether the topic currently rejects publishes (1) or not (0)",
			[]string{"topic"}, nil,
		),
		publishes: prometheus.NewDesc(
			"umcn_topic_publishes_total",
			"Total number of accepted publishes per topic",
			[]string{"topic"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *BusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.frequency
	ch <- c.subscribers
	ch <- c.suspended
	ch <- c.publishes
}

// Collect implements prometheus.Collector.
func (c *BusCollector) Collect(ch chan<- prometheus.Metric) {
	for cur := mcn.List(); ; {
		h := cur.Next()
		if h == nil {
			return
		}
		topic := h.Name()
		suspended := 0.0
		if h.Suspended() {
			suspended = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.frequency, prometheus.GaugeValue,
			float64(h.Frequency()), topic)
		ch <- prometheus.MustNewConstMetric(c.subscribers, prometheus.GaugeValue,
			float64(h.SubscriberCount()), topic)
		ch <- prometheus.MustNewConstMetric(c.suspended, prometheus.GaugeValue,
			suspended, topic)
		ch <- prometheus.MustNewConstMetric(c.publishes, prometheus.CounterValue,
			float64(h.Publishes()), topic)
	}
}

// Serve starts the metrics endpoint on addr, exposing /metrics and a trivial
// /healthz. The returned server is already listening in a background
// goroutine; shut it down with server.Shutdown.
func Serve(addr string, logger zerolog.Logger) *http.Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewBusCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", addr).Msg("metrics server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	return server
}

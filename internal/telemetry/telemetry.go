// Package telemetry exposes the server's live counters as Prometheus
// metrics over an optional /metrics HTTP endpoint. It is a read-only
// observer of the tick loop's structures: nothing here feeds back into
// core algorithm behavior.
package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every counter/gauge the server maintains. The zero
// value is not usable; construct with New.
type Metrics struct {
	registry *prometheus.Registry

	packetsSent       prometheus.Counter
	packetsReceived   prometheus.Counter
	bytesSent         prometheus.Counter
	bytesReceived     prometheus.Counter
	rttMilliseconds   *prometheus.GaugeVec
	connectedClients  prometheus.Gauge
	packetLossRatio   prometheus.Gauge
}

// New registers every metric against a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		packetsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "packets_sent_total",
			Help: "Total UDP datagrams sent.",
		}),
		packetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "packets_received_total",
			Help: "Total UDP datagrams received.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bytes_sent_total",
			Help: "Total bytes sent.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bytes_received_total",
			Help: "Total bytes received.",
		}),
		rttMilliseconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rtt_milliseconds",
			Help: "Smoothed round-trip time per connection, in milliseconds.",
		}, []string{"client_id"}),
		connectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "connected_clients",
			Help: "Number of currently connected clients.",
		}),
		packetLossRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "packet_loss_ratio",
			Help: "Fraction of sent packets believed lost, 0..1.",
		}),
	}

	registry.MustRegister(
		m.packetsSent,
		m.packetsReceived,
		m.bytesSent,
		m.bytesReceived,
		m.rttMilliseconds,
		m.connectedClients,
		m.packetLossRatio,
	)
	return m
}

func (m *Metrics) RecordSend(bytes int) {
	m.packetsSent.Inc()
	m.bytesSent.Add(float64(bytes))
}

func (m *Metrics) RecordReceive(bytes int) {
	m.packetsReceived.Inc()
	m.bytesReceived.Add(float64(bytes))
}

func (m *Metrics) SetRTT(clientID string, milliseconds float64) {
	m.rttMilliseconds.WithLabelValues(clientID).Set(milliseconds)
}

func (m *Metrics) DeleteRTT(clientID string) {
	m.rttMilliseconds.DeleteLabelValues(clientID)
}

func (m *Metrics) SetConnectedClients(n int) {
	m.connectedClients.Set(float64(n))
}

func (m *Metrics) SetPacketLossRatio(ratio float64) {
	m.packetLossRatio.Set(ratio)
}

// Serve starts the /metrics HTTP endpoint on addr, blocking until ctx is
// canceled. It is meant to run on its own goroutine, separate from the
// tick loop.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

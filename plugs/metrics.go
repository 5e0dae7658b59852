package plugs

import (
	"github.com/benbjohnson/clock"
	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts responses and observes their latency.
type Metrics struct {
	clock    clock.Clock
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer, clk clock.Clock) (*Metrics, error) {
	if clk == nil {
		clk = clock.New()
	}

	m := &Metrics{
		clock: clk,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "plug",
			Name:      "responses_total",
			Help:      "Responses handed over to the transport.",
		}, []string{"method", "status", "kind"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "plug",
			Name:      "response_duration_seconds",
			Help:      "Time from entering the pipeline to sending the response.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	for _, collector := range []prometheus.Collector{m.requests, m.latency} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) Plug() pipeline.Plug {
	return func(c conn.Conn) (conn.Conn, error) {
		start := m.clock.Now()

		return c.RegisterBeforeSend(func(c conn.Conn) conn.Conn {
			m.requests.WithLabelValues(c.Method, status.StringCode(c.Status()), c.State().String()).Inc()
			m.latency.WithLabelValues(c.Method).Observe(m.clock.Since(start).Seconds())
			return c
		})
	}
}

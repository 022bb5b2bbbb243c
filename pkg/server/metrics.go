package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspector_http_requests_total",
		Help: "HTTP requests served by the control surface",
	}, []string{"method", "path", "status"})

	agentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspector_agent_events_total",
		Help: "Agent lifecycle events published, by type",
	}, []string{"type"})

	eventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inspector_event_subscribers",
		Help: "Connected event stream subscribers",
	})
)

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

// registerGauges exposes store sizes as pull-time gauges. Duplicate
// registration (a second Server in the same process) is ignored.
func (s *Server) registerGauges() {
	_ = prometheus.DefaultRegisterer.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "inspector_indexed_resources",
		Help: "Indexed resources currently persisted",
	}, func() float64 {
		return float64(s.indexer.Count())
	}))
	_ = prometheus.DefaultRegisterer.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "inspector_profiles",
		Help: "Stored user profiles",
	}, func() float64 {
		return float64(len(s.profiles.List()))
	}))
}

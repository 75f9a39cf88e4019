package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaignkit_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campaignkit_http_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campaignkit_http_in_flight",
		Help: "In-flight HTTP requests",
	})
	CampaignsFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campaignkit_campaigns_found_total",
		Help: "Campaigns delivered by the kit",
	})
	TriggeredCampaigns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "campaignkit_triggered_campaigns",
		Help: "Campaigns currently held in the triggered list",
	})
	Syncs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaignkit_syncs_total",
			Help: "Kit sync results",
		}, []string{"result"},
	)
	PlaceEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaignkit_place_events_total",
			Help: "Place events by type",
		}, []string{"event"},
	)
	Alerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaignkit_alerts_total",
			Help: "Alerts by delivery path",
		}, []string{"path"},
	)
	EnvironmentErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaignkit_environment_errors_total",
			Help: "Non-fatal environment errors by kind",
		}, []string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal, Latency, InFlight,
		CampaignsFound, TriggeredCampaigns, Syncs, PlaceEvents, Alerts, EnvironmentErrors,
	)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}

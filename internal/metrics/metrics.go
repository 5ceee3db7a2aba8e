package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lmspoints", Name: "http_requests_total", Help: "Processed API requests",
	}, []string{"route", "code"})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lmspoints", Name: "handler_errors_total", Help: "Handler errors",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lmspoints", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	SourceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lmspoints", Name: "source_failures_total", Help: "Activity source reads replaced by an empty result",
	}, []string{"source"})
	Reconciliations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lmspoints", Name: "reconciliations_total", Help: "Point reconciliations by outcome",
	}, []string{"result"})
	NotificationsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lmspoints", Name: "notifications_dropped_total", Help: "Live notifications dropped for slow subscribers",
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HandlerErrors, DBPing, SourceFailures, Reconciliations, NotificationsDropped)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

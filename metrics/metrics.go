// ABOUTME: Prometheus instrumentation for refresh cycles, token refreshes, and the status server
// ABOUTME: Collectors register on the default registry and are served by Handler
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RefreshCycles counts aggregator cycles by result ("success", "unauthenticated", "error").
	RefreshCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weekcal_refresh_cycles_total",
		Help: "Total number of calendar refresh cycles.",
	}, []string{"result"})

	// RefreshDuration observes how long a full cycle takes.
	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weekcal_refresh_duration_seconds",
		Help:    "Histogram of calendar refresh cycle latencies.",
		Buckets: prometheus.DefBuckets,
	})

	// FetchFailures counts skipped accounts or calendars by kind ("account", "calendar").
	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weekcal_fetch_failures_total",
		Help: "Total number of account or calendar fetches skipped because of an error.",
	}, []string{"kind"})

	// TokenRefreshes counts refresh_token grants by result ("success", "failure").
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weekcal_token_refreshes_total",
		Help: "Total number of access token refreshes.",
	}, []string{"result"})

	// EventsInWeek is the number of events in the last successful snapshot.
	EventsInWeek = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "weekcal_events",
		Help: "Number of events in the current week snapshot.",
	})

	// Notifications counts event ids reported as new or changed.
	Notifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weekcal_event_notifications_total",
		Help: "Total number of new or changed events reported.",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weekcal_http_requests_total",
		Help: "Total number of status server requests.",
	}, []string{"method", "route", "status"})
)

// ObserveRefresh records one finished cycle.
func ObserveRefresh(result string, start time.Time) {
	RefreshCycles.WithLabelValues(result).Inc()
	RefreshDuration.Observe(time.Since(start).Seconds())
}

// Middleware counts status server requests by chi route pattern.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(r.Method, routePattern(r), strconv.Itoa(status)).Inc()
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := strings.TrimSpace(rctx.RoutePattern()); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

package telemetry

import (
	"net/http"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
)

// unmatchedRoute labels requests that matched no route.
const unmatchedRoute = "unmatched"

// Middleware counts requests and their latency by route template, so
// query strings and path values never become label values. The wrapped
// writer keeps Hijacker for websocket upgrades.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snoop := httpsnoop.CaptureMetrics(next, w, r)

		route := routeLabel(r)
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(snoop.Code)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(snoop.Duration.Seconds())
	})
}

func routeLabel(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return unmatchedRoute
	}
	tmpl, err := route.GetPathTemplate()
	if err != nil {
		return unmatchedRoute
	}
	return tmpl
}

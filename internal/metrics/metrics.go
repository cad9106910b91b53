package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal", Name: "session_resolve_failures_total", Help: "Session resolutions that ended in a logout redirect",
	}, []string{"reason"})
	AccessDenied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal", Name: "access_denied_total", Help: "Requests rejected by the role gate or a relationship check",
	}, []string{"check"})
	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portal", Name: "logins_total", Help: "Login attempts",
	}, []string{"kind", "outcome"})
	SessionsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "portal", Name: "sessions_swept_total", Help: "Expired sessions removed by the sweep job",
	})
)

func init() {
	prometheus.MustRegister(SessionFailures, AccessDenied, Logins, SessionsSwept)
}

func Handler() http.Handler { return promhttp.Handler() }

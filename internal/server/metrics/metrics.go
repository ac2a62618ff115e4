// Package metrics exposes Prometheus counters for the auth core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels shared by the login and refresh counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the auth counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	LoginTotal             *prometheus.CounterVec
	RefreshTotal           *prometheus.CounterVec
	LogoutTotal            prometheus.Counter
	GuardRejectionsTotal   *prometheus.CounterVec
	SweptCertificatesTotal prometheus.Counter

	gatherer prometheus.Gatherer
}

// New creates the counters and registers them with registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		LoginTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmsauth_login_total",
				Help: "Total number of password logins",
			},
			[]string{"audience", "result"},
		),
		RefreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmsauth_refresh_total",
				Help: "Total number of token refreshes",
			},
			[]string{"result"},
		),
		LogoutTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cmsauth_logout_total",
				Help: "Total number of logouts",
			},
		),
		GuardRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmsauth_guard_rejections_total",
				Help: "Requests rejected by the request guard",
			},
			[]string{"reason"},
		),
		SweptCertificatesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cmsauth_swept_certificates_total",
				Help: "Expired certificates removed by the sweeper",
			},
		),
		gatherer: registry,
	}

	registry.MustRegister(
		m.LoginTotal,
		m.RefreshTotal,
		m.LogoutTotal,
		m.GuardRejectionsTotal,
		m.SweptCertificatesTotal,
	)

	return m
}

func (m *Metrics) ObserveLogin(audience, result string) {
	if m == nil {
		return
	}
	m.LoginTotal.WithLabelValues(audience, result).Inc()
}

func (m *Metrics) ObserveRefresh(result string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLogout() {
	if m == nil {
		return
	}
	m.LogoutTotal.Inc()
}

func (m *Metrics) ObserveGuardRejection(reason string) {
	if m == nil {
		return
	}
	m.GuardRejectionsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.SweptCertificatesTotal.Add(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

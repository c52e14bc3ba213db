package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP 指标
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// 账本指标
	SubscribeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_subscribe_requests_total",
			Help: "Self-service subscribe requests by outcome",
		},
		[]string{"outcome"}, // pending / active / rejected
	)
	RegistrationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "premium_registrations_total",
			Help: "Transactions registered by staff",
		},
	)
	TerminationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "premium_terminated_records_total",
			Help: "Ledger records deleted by termination",
		},
	)
	RoleOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_role_operations_total",
			Help: "Premium role grants and revocations",
		},
		[]string{"op", "status"}, // op: grant / revoke
	)

	// 对账指标
	ReconcileRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_reconcile_runs_total",
			Help: "Reconciliation sweeps by result",
		},
		[]string{"status"},
	)
	ReconcileExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "premium_reconcile_expired_total",
			Help: "Expired records deleted by reconciliation",
		},
	)
	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "premium_reconcile_duration_seconds",
			Help: "Duration of reconciliation sweeps in seconds",
		},
	)

	// 异常报告
	IncidentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "premium_incidents_total",
			Help: "Unexpected errors reported to operators",
		},
		[]string{"source"},
	)
)

var initOnce sync.Once

// InitMetrics 注册到默认 registry，重复调用无副作用
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(HTTPRequestsInFlight)

		prometheus.MustRegister(SubscribeRequestsTotal)
		prometheus.MustRegister(RegistrationsTotal)
		prometheus.MustRegister(TerminationsTotal)
		prometheus.MustRegister(RoleOperationsTotal)

		prometheus.MustRegister(ReconcileRunsTotal)
		prometheus.MustRegister(ReconcileExpiredTotal)
		prometheus.MustRegister(ReconcileDuration)

		prometheus.MustRegister(IncidentsTotal)
	})
}

// ObserveRole 记录一次角色操作
func ObserveRole(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	RoleOperationsTotal.WithLabelValues(op, status).Inc()
}

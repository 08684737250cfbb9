// Package metrics 定义服务的 Prometheus 指标，通过 /metrics 暴露。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 推荐进程调用
	RecommenderInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_recommender_invocations_total",
			Help: "Total number of recommender process invocations",
		},
		[]string{"flow", "outcome"}, // flow: basic, personalized; outcome: success, domain_error, process_error, timeout, rejected
	)

	RecommenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutor_recommender_duration_seconds",
			Help:    "Duration of recommender process invocations in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"flow"},
	)

	// 数据集刷新
	DatasetRefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutor_dataset_refresh_duration_seconds",
			Help:    "Duration of dataset refresh runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"}, // refresh, ensure
	)

	DatasetRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_dataset_refresh_total",
			Help: "Total number of dataset refresh runs",
		},
		[]string{"mode", "outcome"},
	)

	DatasetRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tutor_dataset_rows",
			Help: "Number of roadmaps in the latest exported dataset",
		},
	)

	// 熔断器
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tutor_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutor_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{.005, .01, .05, .1, .5, 1, 5, 30, 120},
		},
		[]string{"method", "route"},
	)

	// 调度任务
	SchedulerTaskRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutor_scheduler_task_runs_total",
			Help: "Total number of scheduler task runs",
		},
		[]string{"task", "outcome"},
	)
)

// RecordInvocation 记录一次推荐进程调用
func RecordInvocation(flow, outcome string, duration time.Duration) {
	RecommenderInvocations.WithLabelValues(flow, outcome).Inc()
	RecommenderDuration.WithLabelValues(flow).Observe(duration.Seconds())
}

// RecordDatasetRefresh 记录一次数据集刷新
func RecordDatasetRefresh(mode string, duration time.Duration, err error) {
	DatasetRefreshDuration.WithLabelValues(mode).Observe(duration.Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	DatasetRefreshTotal.WithLabelValues(mode, outcome).Inc()
}

// RecordAPIRequest 记录一次 API 请求
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSchedulerTask 记录一次调度任务执行
func RecordSchedulerTask(task string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	SchedulerTaskRuns.WithLabelValues(task, outcome).Inc()
}

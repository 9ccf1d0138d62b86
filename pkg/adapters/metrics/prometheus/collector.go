package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements ports.MetricsCollector using Prometheus
type Collector struct {
	jobsPlanned  *prometheus.CounterVec
	jobRuns      *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	activeRuns   prometheus.Gauge
	planFlows    prometheus.Histogram
	tasksExec    *prometheus.CounterVec
	taskAttempts *prometheus.HistogramVec
	taskDuration *prometheus.HistogramVec
	taskRetries  *prometheus.CounterVec

	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
	queueDepth        *prometheus.GaugeVec

	llmCalls   *prometheus.CounterVec
	llmTokens  *prometheus.CounterVec
	llmLatency *prometheus.HistogramVec
}

// NewCollector creates a collector whose metrics are registered with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		jobsPlanned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classflow_jobs_planned_total",
				Help: "Total number of jobs planned",
			},
			[]string{},
		),
		planFlows: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "classflow_job_flows",
				Help:    "Number of flows matched per planned job",
				Buckets: []float64{1, 2, 3, 4},
			},
		),
		jobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classflow_job_runs_total",
				Help: "Total number of job runs by outcome",
			},
			[]string{"outcome"},
		),
		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "classflow_job_run_duration_seconds",
				Help:    "Job run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
			},
			[]string{"outcome"},
		),
		activeRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "classflow_active_runs",
				Help: "Number of job runs in progress",
			},
		),
		tasksExec: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classflow_tasks_executed_total",
				Help: "Total number of tasks executed",
			},
			[]string{"action", "status"},
		),
		taskAttempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "classflow_task_attempts",
				Help:    "Attempts used per executed task",
				Buckets: []float64{0, 1, 2, 3, 5},
			},
			[]string{"action"},
		),
		taskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "classflow_task_duration_seconds",
				Help:    "Task execution duration in seconds, retries included",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"action"},
		),
		taskRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classflow_task_retries_total",
				Help: "Total number of task retries",
			},
			[]string{"action"},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "classflow_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "classflow_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "classflow_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
		queueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "classflow_queue_depth",
				Help: "Current depth of run queues",
			},
			[]string{"queue"},
		),
		llmCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classflow_llm_calls_total",
				Help: "Total number of LLM API calls",
			},
			[]string{"model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classflow_llm_tokens_total",
				Help: "Total number of LLM tokens used",
			},
			[]string{"model", "type"},
		),
		llmLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "classflow_llm_latency_seconds",
				Help:    "LLM API call latency in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 60},
			},
			[]string{"model"},
		),
	}
}

// RecordJobPlanned records a planned job and how many flows it matched
func (c *Collector) RecordJobPlanned(flows int) {
	c.jobsPlanned.With(prometheus.Labels{}).Inc()
	c.planFlows.Observe(float64(flows))
}

// RecordJobRun records the outcome and duration of one run
func (c *Collector) RecordJobRun(outcome string, duration time.Duration) {
	c.jobRuns.WithLabelValues(outcome).Inc()
	c.jobDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordTaskExecuted records one executed task
func (c *Collector) RecordTaskExecuted(action, status string, attempts int, duration time.Duration) {
	c.tasksExec.WithLabelValues(action, status).Inc()
	c.taskAttempts.WithLabelValues(action).Observe(float64(attempts))
	c.taskDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordTaskRetry records a retry of action
func (c *Collector) RecordTaskRetry(action string) {
	c.taskRetries.WithLabelValues(action).Inc()
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}

// SetQueueDepth sets the current depth of a queue
func (c *Collector) SetQueueDepth(queueName string, depth int) {
	c.queueDepth.WithLabelValues(queueName).Set(float64(depth))
}

// SetActiveRuns sets the number of runs in progress
func (c *Collector) SetActiveRuns(count int) {
	c.activeRuns.Set(float64(count))
}

// RecordLLMCall records one LLM API call
func (c *Collector) RecordLLMCall(model, status string, duration time.Duration, inputTokens, outputTokens int) {
	c.llmCalls.WithLabelValues(model, status).Inc()
	c.llmLatency.WithLabelValues(model).Observe(duration.Seconds())
	if inputTokens > 0 {
		c.llmTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		c.llmTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	}
}

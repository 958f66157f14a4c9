package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus метрики оркестратора.
var (
	// RunsTotal — количество завершённых runs по региону и статусу.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refresher_runs_total",
		Help: "Completed refresh runs by region and terminal status",
	}, []string{"region", "status"})

	// UnitAttemptsTotal — попытки выполнения единиц работы по исходу.
	UnitAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refresher_unit_attempts_total",
		Help: "Stored procedure execution attempts by outcome",
	}, []string{"outcome"})

	// UnitDurationSeconds — длительность успешного выполнения единицы работы.
	UnitDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "refresher_unit_duration_seconds",
		Help:    "Wall-clock duration of a successful unit execution",
		Buckets: prometheus.ExponentialBuckets(30, 2, 9),
	})

	// PollCyclesTotal — количество describe-вызовов к движку.
	PollCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refresher_poll_cycles_total",
		Help: "Describe calls issued while waiting for terminal status",
	})

	// AuditWriteRetriesTotal — повторы записи в audit-журнал.
	AuditWriteRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "refresher_audit_write_retries_total",
		Help: "Retried audit store writes after transient errors",
	})

	// TriggerTicksTotal — тики гейт-сервиса по результату.
	TriggerTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "refresher_trigger_ticks_total",
		Help: "Trigger gate evaluations by decision",
	}, []string{"decision"})
)

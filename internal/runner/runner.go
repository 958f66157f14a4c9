package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Refresher/internal/domain"
	"github.com/shaiso/Refresher/internal/engine"
	"github.com/shaiso/Refresher/internal/telemetry"
)

// Параметры бюджета повторов по умолчанию.
const (
	defaultAttempts   = 3
	defaultRetryDelay = 120 * time.Second
)

// WorklistProvider отдаёт упорядоченный список единиц работы для run.
type WorklistProvider interface {
	Pending(ctx context.Context, run *domain.RunContext) ([]domain.WorkUnit, error)
}

// Submitter передаёт выражение движку выполнения.
type Submitter interface {
	Submit(ctx context.Context, sql string) (string, error)
}

// Awaiter доводит переданное выражение до терминального статуса.
type Awaiter interface {
	AwaitTerminal(ctx context.Context, id string) (engine.Status, string, error)
}

// Recorder персистирует переходы состояний run в audit-журнал.
type Recorder interface {
	RecordStart(ctx context.Context, run *domain.RunContext) error
	RecordEnd(ctx context.Context, run *domain.RunContext, outcome *domain.RunOutcome) error
}

// Notifier отправляет уведомления по терминальному итогу run.
type Notifier interface {
	Notify(ctx context.Context, run *domain.RunContext, outcome *domain.RunOutcome) error
}

// Runner — оркестратор одного refresh-батча.
//
// Единицы работы выполняются строго последовательно по ExecOrder.
// Первая единица, исчерпавшая бюджет повторов, останавливает батч:
// оставшиеся единицы не запускаются.
type Runner struct {
	worklist   WorklistProvider
	submitter  Submitter
	awaiter    Awaiter
	recorder   Recorder
	notifier   Notifier
	attempts   int
	retryDelay time.Duration
	logger     *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	// Worklist — провайдер единиц работы.
	Worklist WorklistProvider

	// Submitter — клиент движка выполнения.
	Submitter Submitter

	// Awaiter — ожидание терминального статуса выражения.
	Awaiter Awaiter

	// Recorder — audit-журнал. Nil допустим: запись пропускается.
	Recorder Recorder

	// Notifier — уведомления. Nil допустим: отправка пропускается.
	Notifier Notifier

	// Attempts — бюджет повторов одной единицы работы (default: 3).
	Attempts int

	// RetryDelay — пауза между попытками (default: 120s).
	RetryDelay time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		worklist:   cfg.Worklist,
		submitter:  cfg.Submitter,
		awaiter:    cfg.Awaiter,
		recorder:   cfg.Recorder,
		notifier:   cfg.Notifier,
		attempts:   attempts,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Run выполняет один refresh-батч от старта до терминального итога.
//
// Возвращает итог и ошибку для exit-кода процесса:
//   - nil — батч успешен;
//   - ErrRetryExhausted — батч остановлен на упавшей единице;
//   - ErrWorklistUnavailable — worklist не получен, ничего не выполнялось;
//   - ErrAuditDegraded — батч успешен, но audit-журнал мог отстать.
//
// Сбои audit-записей и уведомлений никогда не меняют сам итог батча.
func (r *Runner) Run(ctx context.Context, run *domain.RunContext) (*domain.RunOutcome, error) {
	logger := telemetry.WithRun(r.logger, run.Key())
	logger.Info("starting refresh run")

	outcome := domain.NewRunOutcome()
	outcome.MarkInProgress()

	auditDegraded := false
	if !r.recordStart(ctx, run, logger) {
		auditDegraded = true
	}

	units, err := r.worklist.Pending(ctx, run)
	if err != nil {
		if ctx.Err() != nil {
			return outcome, ctx.Err()
		}
		outcome.MarkFailed(domain.FailureRecord{
			Error:  err.Error(),
			Region: run.Region,
		})
		r.finish(ctx, run, outcome, logger)
		return outcome, fmt.Errorf("%w: %v", ErrWorklistUnavailable, err)
	}

	logger.Info("worklist fetched", "units", len(units))

	for _, unit := range units {
		detail, ok, err := r.executeWithRetry(ctx, unit)
		if err != nil {
			return outcome, err
		}
		if ok {
			continue
		}

		// Fail-fast: первая исчерпавшая повторы единица завершает батч.
		outcome.MarkFailed(domain.FailureRecord{
			Unit:   unit,
			Error:  detail,
			Region: run.Region,
		})
		logger.Error("run failed",
			"procedure", unit.Name,
			"error", outcome.ErrorMessage,
		)
		r.finish(ctx, run, outcome, logger)
		return outcome, fmt.Errorf("%w: %s", ErrRetryExhausted, unit.Name)
	}

	outcome.MarkFinished()
	logger.Info("run finished",
		"units", len(units),
		"duration", outcome.Duration(),
	)
	if !r.finish(ctx, run, outcome, logger) {
		auditDegraded = true
	}

	if auditDegraded {
		return outcome, ErrAuditDegraded
	}
	return outcome, nil
}

// recordStart фиксирует старт в журнале. false — запись не удалась.
func (r *Runner) recordStart(ctx context.Context, run *domain.RunContext, logger *slog.Logger) bool {
	if r.recorder == nil {
		return true
	}
	if err := r.recorder.RecordStart(ctx, run); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false
		}
		logger.Warn("audit start write failed", "error", err)
		return false
	}
	return true
}

// finish фиксирует терминальный итог в журнале, метриках и уведомлениях.
// false — запись в журнал не удалась.
func (r *Runner) finish(ctx context.Context, run *domain.RunContext, outcome *domain.RunOutcome, logger *slog.Logger) bool {
	telemetry.RunsTotal.WithLabelValues(run.Region, outcome.Status.MasterStatus()).Inc()

	recorded := true
	if r.recorder != nil {
		if err := r.recorder.RecordEnd(ctx, run, outcome); err != nil {
			logger.Warn("audit end write failed", "error", err)
			recorded = false
		}
	}

	if r.notifier != nil {
		if err := r.notifier.Notify(ctx, run, outcome); err != nil {
			logger.Warn("notification failed", "error", err)
		}
	}

	return recorded
}

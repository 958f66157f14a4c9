// Package audit персистирует переходы состояний run в audit-журнал.
//
// Записи оборачивают run скобками (старт, финал), чтобы упавший процесс
// всегда оставлял наблюдаемый не-терминальный статус, а не молчаливую
// дыру в журнале. У записей собственная retry-политика, не связанная
// с retry выполнения единиц работы.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Refresher/internal/domain"
	"github.com/shaiso/Refresher/internal/repo"
	"github.com/shaiso/Refresher/internal/telemetry"
)

// Параметры retry записи по умолчанию.
const (
	defaultWriteAttempts = 3
	defaultWriteBackoff  = 3 * time.Second
)

// ErrWriteExhausted — запись в журнал не удалась после всех попыток.
//
// Не фатально для батча: вызывающая сторона логирует warning и продолжает,
// но ошибка различима, поскольку состояние журнала могло устареть.
var ErrWriteExhausted = errors.New("audit write exhausted")

// Store — подмножество AuditRepo, нужное рекордеру.
type Store interface {
	InsertRunLog(ctx context.Context, run *domain.RunContext) error
	UpdateRunStatus(ctx context.Context, run *domain.RunContext, status domain.ExecutionStatus) error
	UpdateRunEnd(ctx context.Context, run *domain.RunContext, outcome *domain.RunOutcome) error
	AnnotateDelay(ctx context.Context, run *domain.RunContext, reason string) error
	UpdateMasterStart(ctx context.Context, region, identifier string, at time.Time) error
	UpdateMasterStatus(ctx context.Context, region, identifier, status string) error
}

// Recorder — рекордер audit-журнала с bounded retry на запись.
type Recorder struct {
	store    Store
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// Config — конфигурация Recorder.
type Config struct {
	// Store — бэкенд журнала.
	Store Store

	// Attempts — количество попыток записи (default: 3).
	Attempts int

	// Backoff — база линейной задержки между попытками (default: 3s).
	Backoff time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Recorder.
func New(cfg Config) *Recorder {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultWriteAttempts
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultWriteBackoff
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Recorder{
		store:    cfg.Store,
		attempts: attempts,
		backoff:  backoff,
		logger:   logger,
	}
}

// RecordStart фиксирует начало батча: строка журнала переводится
// в InProgress, dashboard-строка получает время старта.
//
// Идемпотентно: если строки журнала ещё нет (runner запущен напрямую,
// без гейта), она заводится на месте.
func (r *Recorder) RecordStart(ctx context.Context, run *domain.RunContext) error {
	err := r.withRetry(ctx, "run log start", func(ctx context.Context) error {
		err := r.store.UpdateRunStatus(ctx, run, domain.StatusInProgress)
		if errors.Is(err, repo.ErrNotFound) {
			if err := r.store.InsertRunLog(ctx, run); err != nil {
				return err
			}
			return r.store.UpdateRunStatus(ctx, run, domain.StatusInProgress)
		}
		return err
	})
	if err != nil {
		return err
	}

	return r.withRetry(ctx, "master start", func(ctx context.Context) error {
		return r.store.UpdateMasterStart(ctx, run.Region, run.ReportSource, time.Now().UTC())
	})
}

// RecordEnd фиксирует терминальный итог run в журнале и dashboard-строке.
func (r *Recorder) RecordEnd(ctx context.Context, run *domain.RunContext, outcome *domain.RunOutcome) error {
	if err := r.withRetry(ctx, "run log end", func(ctx context.Context) error {
		return r.store.UpdateRunEnd(ctx, run, outcome)
	}); err != nil {
		return err
	}

	return r.withRetry(ctx, "master status", func(ctx context.Context) error {
		return r.store.UpdateMasterStatus(ctx, run.Region, run.ReportSource, outcome.Status.MasterStatus())
	})
}

// RecordDelay помечает run статусом Delay с причиной.
func (r *Recorder) RecordDelay(ctx context.Context, run *domain.RunContext, reason string) error {
	return r.withRetry(ctx, "delay annotation", func(ctx context.Context) error {
		return r.store.AnnotateDelay(ctx, run, reason)
	})
}

// withRetry выполняет запись с линейным backoff (backoff * номер попытки).
// После исчерпания попыток возвращает ErrWriteExhausted с последней ошибкой.
func (r *Recorder) withRetry(ctx context.Context, desc string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err := fn(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}

		r.logger.Warn("audit write failed",
			"write", desc,
			"attempt", attempt,
			"error", lastErr,
		)

		if attempt == r.attempts {
			break
		}

		telemetry.AuditWriteRetriesTotal.Inc()

		select {
		case <-time.After(r.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("%w: %s after %d attempts: %v", ErrWriteExhausted, desc, r.attempts, lastErr)
}

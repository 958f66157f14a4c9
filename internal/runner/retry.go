package runner

import (
	"context"
	"time"

	"github.com/shaiso/Refresher/internal/domain"
	"github.com/shaiso/Refresher/internal/engine"
	"github.com/shaiso/Refresher/internal/telemetry"
)

// executeWithRetry выполняет одну единицу работы в пределах бюджета повторов.
//
// Каждая попытка — это submit плюс ожидание терминального статуса.
// Ошибка самого submit тоже потребляет попытку: движок, который не
// принимает выражения, не повод крутить бесконечный цикл. Между
// попытками — фиксированная пауза RetryDelay.
//
// Возвращает detail последней терминальной ошибки и признак успеха.
// Ошибка возвращается только при отмене контекста.
func (r *Runner) executeWithRetry(ctx context.Context, unit domain.WorkUnit) (string, bool, error) {
	logger := telemetry.WithUnit(r.logger, unit.Name)

	var lastDetail string
	for attempt := 1; attempt <= r.attempts; attempt++ {
		started := time.Now()

		status, detail, err := r.executeOnce(ctx, unit)
		if err != nil {
			return "", false, err
		}

		if status == engine.StatusFinished {
			telemetry.UnitAttemptsTotal.WithLabelValues("success").Inc()
			telemetry.UnitDurationSeconds.Observe(time.Since(started).Seconds())
			logger.Info("unit finished",
				"attempt", attempt,
				"duration", time.Since(started),
			)
			return "", true, nil
		}

		telemetry.UnitAttemptsTotal.WithLabelValues("failure").Inc()
		lastDetail = detail
		logger.Warn("unit attempt failed",
			"attempt", attempt,
			"status", status,
			"detail", detail,
		)

		if attempt == r.attempts {
			break
		}

		select {
		case <-time.After(r.retryDelay):
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}

	return lastDetail, false, nil
}

// executeOnce — одна попытка: submit и ожидание терминального статуса.
//
// Ошибка submit трактуется как терминальный FAILED с текстом ошибки
// в качестве detail.
func (r *Runner) executeOnce(ctx context.Context, unit domain.WorkUnit) (engine.Status, string, error) {
	id, err := r.submitter.Submit(ctx, unit.CallStatement())
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		r.logger.Warn("submit failed", "procedure", unit.Name, "error", err)
		return engine.StatusFailed, err.Error(), nil
	}

	r.logger.Debug("statement submitted", "procedure", unit.Name, "query_id", id)

	return r.awaiter.AwaitTerminal(ctx, id)
}

package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Refresher/internal/telemetry"
)

// Интервал опроса по умолчанию.
const defaultPollInterval = 120 * time.Second

// Poller доводит выражение до терминального статуса.
//
// Кооперативный однопоточный опрос: Describe, затем сон фиксированной
// длины, и так до терминального статуса. Poller никогда не busy-spin'ит —
// между проверками всегда есть сон.
//
// Ошибка самого Describe-вызова трактуется как синтетический FAILED
// с текстом ошибки в качестве detail: сбой мониторинга потребляет одну
// попытку единицы работы, а не повторяется бесконечно. Это ограничивает
// суммарное wall-clock время опроса.
type Poller struct {
	client   Client
	interval time.Duration
	logger   *slog.Logger
}

// PollerConfig — конфигурация Poller.
type PollerConfig struct {
	// Client — клиент движка выполнения.
	Client Client

	// Interval — интервал между опросами (default: 120s).
	Interval time.Duration

	// Logger
	Logger *slog.Logger
}

// NewPoller создаёт новый Poller.
func NewPoller(cfg PollerConfig) *Poller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		client:   cfg.Client,
		interval: interval,
		logger:   logger,
	}
}

// AwaitTerminal опрашивает выражение до терминального статуса.
//
// Возвращает терминальный статус и detail (текст ошибки движка либо,
// для синтетического FAILED, текст ошибки Describe-вызова). Ошибка
// возвращается только при отмене контекста.
func (p *Poller) AwaitTerminal(ctx context.Context, id string) (Status, string, error) {
	for {
		status, detail, err := p.client.Describe(ctx, id)
		telemetry.PollCyclesTotal.Inc()

		if err != nil {
			p.logger.Warn("describe failed, reporting synthetic failure",
				"query_id", id,
				"error", err,
			)
			// Сон перед возвратом, чтобы сбойный describe не превращался
			// в мгновенный цикл retry уровнем выше.
			if serr := p.sleep(ctx); serr != nil {
				return "", "", serr
			}
			return StatusFailed, err.Error(), nil
		}

		if status.IsTerminal() {
			return status, detail, nil
		}

		p.logger.Debug("statement not terminal yet",
			"query_id", id,
			"status", status,
		)

		if serr := p.sleep(ctx); serr != nil {
			return "", "", serr
		}
	}
}

// sleep ждёт один интервал опроса с учётом контекста.
func (p *Poller) sleep(ctx context.Context) error {
	select {
	case <-time.After(p.interval):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

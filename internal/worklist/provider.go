// Package worklist отдаёт упорядоченный список единиц работы для run.
package worklist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shaiso/Refresher/internal/domain"
	"github.com/shaiso/Refresher/internal/repo"
)

// Параметры retry по умолчанию: узкий retry только на транзиентные
// сбои доступа, не связанный с retry выполнения единиц работы.
const (
	defaultFetchAttempts = 3
	defaultFetchBackoff  = 3 * time.Second
)

// ErrUnavailable — worklist недоступен после исчерпания попыток выборки.
var ErrUnavailable = errors.New("worklist unavailable")

// Source — источник worklist-строк (обычно repo.WorklistRepo).
type Source interface {
	ListPending(ctx context.Context, f repo.WorklistFilter) ([]domain.WorkUnit, error)
}

// Provider — провайдер worklist с bounded retry.
//
// Пустой результат — валидный исход "нет работы", не ошибка.
type Provider struct {
	source   Source
	filter   repo.WorklistFilter
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// Config — конфигурация Provider.
type Config struct {
	// Source — источник строк worklist.
	Source Source

	// DataSource и Exclude — LIKE-фильтр по тегу источника данных.
	DataSource string
	Exclude    bool

	// Codebase — вариант worklist (пустая строка — без фильтра).
	Codebase string

	// Attempts — количество попыток выборки (default: 3).
	Attempts int

	// Backoff — база линейной задержки между попытками (default: 3s).
	Backoff time.Duration

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Provider.
func New(cfg Config) *Provider {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = defaultFetchAttempts
	}

	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = defaultFetchBackoff
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{
		source: cfg.Source,
		filter: repo.WorklistFilter{
			DataSource: cfg.DataSource,
			Exclude:    cfg.Exclude,
			Codebase:   cfg.Codebase,
		},
		attempts: attempts,
		backoff:  backoff,
		logger:   logger,
	}
}

// Pending возвращает единицы работы для run, упорядоченные по ExecOrder.
// Сортировка стабильна: при равном ExecOrder сохраняется порядок источника.
func (p *Provider) Pending(ctx context.Context, run *domain.RunContext) ([]domain.WorkUnit, error) {
	filter := p.filter
	filter.Region = run.Region

	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		units, err := p.source.ListPending(ctx, filter)
		if err == nil {
			sort.SliceStable(units, func(i, j int) bool {
				return units[i].ExecOrder < units[j].ExecOrder
			})
			return units, nil
		}

		lastErr = err
		p.logger.Warn("worklist fetch failed",
			"attempt", attempt,
			"region", run.Region,
			"error", err,
		)

		if attempt == p.attempts {
			break
		}

		// Линейный backoff: backoff * номер попытки.
		select {
		case <-time.After(p.backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, p.attempts, lastErr)
}

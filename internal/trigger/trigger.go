package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shaiso/Refresher/internal/domain"
	"github.com/shaiso/Refresher/internal/readiness"
	"github.com/shaiso/Refresher/internal/repo"
	"github.com/shaiso/Refresher/internal/telemetry"
)

// Причина задержки чужим run того же источника.
const reasonOtherRegionInFlight = "Other Region Report Refresh is already running"

// Решения тика для метрик.
const (
	decisionSkipInFlight = "skip_inflight"
	decisionSkipDone     = "skip_done"
	decisionDelayRegion  = "delay_other_region"
	decisionWaitFiles    = "wait_files"
	decisionProceedLate  = "proceed_late"
	decisionLaunch       = "launch"
	decisionError        = "error"
)

// Store — подмножество AuditRepo, нужное гейту.
type Store interface {
	GetRunLog(ctx context.Context, region string, batchDate time.Time, source string) (*repo.RunLogRow, error)
	InsertRunLog(ctx context.Context, run *domain.RunContext) error
	MarkSubmitted(ctx context.Context, run *domain.RunContext, at time.Time) error
	AnyInFlight(ctx context.Context, batchDate time.Time, source, excludeRegion string) (bool, error)
}

// DelayRecorder фиксирует задержку run в журнале.
type DelayRecorder interface {
	RecordDelay(ctx context.Context, run *domain.RunContext, reason string) error
}

// DelayNotifier уведомляет операторов о задержанном run.
type DelayNotifier interface {
	NotifyDelay(ctx context.Context, run *domain.RunContext, reason string) error
}

// PriorityLister отдаёт имена priority-файлов для региона и источника.
type PriorityLister interface {
	ListPriorityFiles(ctx context.Context, region, dataSource string) ([]string, error)
}

// ReadinessChecker проверяет загрузку priority-файлов.
type ReadinessChecker interface {
	Check(ctx context.Context, files []string) (*readiness.Report, error)
}

// Launcher запускает оркестратор батча для прошедшего гейт run.
type Launcher interface {
	Launch(ctx context.Context, run *domain.RunContext) error
}

// Trigger — гейт запуска refresh-батча одного региона.
type Trigger struct {
	store    Store
	delays   DelayRecorder
	notifier DelayNotifier
	priority PriorityLister
	checker  ReadinessChecker
	launcher Launcher
	cutoff   *Window
	clock    func() time.Time
	logger   *slog.Logger

	region       string
	reportSource string
	dataSource   string
	codebase     string

	// delayAnnounced предотвращает повторные Delay-уведомления
	// в пределах одного батча.
	delayAnnounced map[string]bool
}

// Config — конфигурация Trigger.
type Config struct {
	// Store — audit-журнал.
	Store Store

	// Delays — запись Delay-аннотаций (обычно audit.Recorder).
	Delays DelayRecorder

	// Notifier — Delay-уведомления. Nil допустим.
	Notifier DelayNotifier

	// Priority — список priority-файлов (обычно repo.WorklistRepo).
	Priority PriorityLister

	// Checker — проверка готовности файлов. Nil допустим:
	// гейт не ждёт файлов.
	Checker ReadinessChecker

	// Launcher — запуск оркестратора.
	Launcher Launcher

	// Cutoff — cutoff-окно ожидания файлов. Nil допустим:
	// гейт ждёт файлов без ограничения.
	Cutoff *Window

	// Region, ReportSource, DataSource, Codebase — идентичность
	// обслуживаемых runs.
	Region       string
	ReportSource string
	DataSource   string
	Codebase     string

	// Clock — источник времени (default: time.Now). Для тестов.
	Clock func() time.Time

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Trigger.
func New(cfg Config) *Trigger {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Trigger{
		store:          cfg.Store,
		delays:         cfg.Delays,
		notifier:       cfg.Notifier,
		priority:       cfg.Priority,
		checker:        cfg.Checker,
		launcher:       cfg.Launcher,
		cutoff:         cfg.Cutoff,
		clock:          clock,
		logger:         logger,
		region:         cfg.Region,
		reportSource:   cfg.ReportSource,
		dataSource:     cfg.DataSource,
		codebase:       cfg.Codebase,
		delayAnnounced: make(map[string]bool),
	}
}

// Tick выполняет одну оценку гейта.
//
// Порядок проверок:
//  1. Строка журнала на сегодня: заводится при отсутствии; run в полёте
//     или уже завершённый — дубликат, тик пропускается.
//  2. Чужой run того же источника в другом регионе — аннотация Delay.
//  3. Priority-файлы: до cutoff гейт ждёт загрузки; после cutoff
//     батч стартует с аннотацией Delay.
//  4. Проходной тик: run помечается Submitted и запускается оркестратор.
//
// Ошибка возвращается только при сбое инфраструктуры самого тика;
// решения "ждать" и "пропустить" — не ошибки.
func (t *Trigger) Tick(ctx context.Context) error {
	now := t.clock()
	run := &domain.RunContext{
		Region:       t.region,
		BatchDate:    now,
		ReportSource: t.reportSource,
		Codebase:     t.codebase,
	}
	logger := telemetry.WithRun(t.logger, run.Key())

	status, err := t.currentStatus(ctx, run)
	if err != nil {
		telemetry.TriggerTicksTotal.WithLabelValues(decisionError).Inc()
		return err
	}

	// Дубликат: run на эту тройку уже передан или завершён.
	if status.InFlight() {
		telemetry.TriggerTicksTotal.WithLabelValues(decisionSkipInFlight).Inc()
		logger.Debug("run already in flight, skipping tick")
		return nil
	}
	if status.IsTerminal() {
		telemetry.TriggerTicksTotal.WithLabelValues(decisionSkipDone).Inc()
		logger.Debug("run already terminal, skipping tick", "status", status)
		return nil
	}

	// Чужой run того же источника в другом регионе.
	busy, err := t.store.AnyInFlight(ctx, run.BatchDate, run.ReportSource, run.Region)
	if err != nil {
		telemetry.TriggerTicksTotal.WithLabelValues(decisionError).Inc()
		return fmt.Errorf("check other regions: %w", err)
	}
	if busy {
		telemetry.TriggerTicksTotal.WithLabelValues(decisionDelayRegion).Inc()
		t.announceDelay(ctx, run, reasonOtherRegionInFlight, logger)
		return nil
	}

	// Готовность priority-файлов.
	proceed, err := t.filesReady(ctx, run, now, logger)
	if err != nil {
		telemetry.TriggerTicksTotal.WithLabelValues(decisionError).Inc()
		return err
	}
	if !proceed {
		telemetry.TriggerTicksTotal.WithLabelValues(decisionWaitFiles).Inc()
		return nil
	}

	if err := t.store.MarkSubmitted(ctx, run, now); err != nil {
		telemetry.TriggerTicksTotal.WithLabelValues(decisionError).Inc()
		return fmt.Errorf("mark submitted: %w", err)
	}

	telemetry.TriggerTicksTotal.WithLabelValues(decisionLaunch).Inc()
	logger.Info("gate passed, launching run")

	if err := t.launcher.Launch(ctx, run); err != nil {
		// Итог уже зафиксирован оркестратором; гейт только логирует.
		logger.Error("run launch returned error", "error", err)
	}
	return nil
}

// currentStatus возвращает статус строки журнала на сегодня,
// заводя её при отсутствии.
func (t *Trigger) currentStatus(ctx context.Context, run *domain.RunContext) (domain.ExecutionStatus, error) {
	row, err := t.store.GetRunLog(ctx, run.Region, run.BatchDate, run.ReportSource)
	if errors.Is(err, repo.ErrNotFound) {
		if err := t.store.InsertRunLog(ctx, run); err != nil {
			return "", fmt.Errorf("insert run log: %w", err)
		}
		return domain.StatusYetToStart, nil
	}
	if err != nil {
		return "", fmt.Errorf("get run log: %w", err)
	}
	return row.Status, nil
}

// filesReady проверяет priority-файлы. true — гейт может запускать батч.
func (t *Trigger) filesReady(ctx context.Context, run *domain.RunContext, now time.Time, logger *slog.Logger) (bool, error) {
	if t.priority == nil || t.checker == nil {
		return true, nil
	}

	files, err := t.priority.ListPriorityFiles(ctx, run.Region, t.dataSource)
	if err != nil {
		return false, fmt.Errorf("list priority files: %w", err)
	}
	if len(files) == 0 {
		return true, nil
	}

	report, err := t.checker.Check(ctx, files)
	if err != nil {
		return false, fmt.Errorf("check priority files: %w", err)
	}
	if report.AllLoaded() {
		return true, nil
	}

	pending := report.Pending()
	if t.cutoff != nil && t.cutoff.Passed(now, run.BatchDate) {
		// Cutoff прошёл: стартуем без файлов, с аннотацией Delay.
		telemetry.TriggerTicksTotal.WithLabelValues(decisionProceedLate).Inc()
		reason := "Priority files not loaded before cutoff: " + strings.Join(pending, ", ")
		t.announceDelay(ctx, run, reason, logger)
		return true, nil
	}

	logger.Info("waiting for priority files", "pending", pending)
	return false, nil
}

// announceDelay фиксирует Delay в журнале и уведомляет операторов.
// Уведомление уходит один раз на батч и причину.
func (t *Trigger) announceDelay(ctx context.Context, run *domain.RunContext, reason string, logger *slog.Logger) {
	logger.Warn("run delayed", "reason", reason)

	if t.delays != nil {
		if err := t.delays.RecordDelay(ctx, run, reason); err != nil {
			logger.Warn("delay annotation failed", "error", err)
		}
	}

	key := run.Key() + "|" + reason
	if t.notifier == nil || t.delayAnnounced[key] {
		return
	}
	t.delayAnnounced[key] = true

	if err := t.notifier.NotifyDelay(ctx, run, reason); err != nil {
		logger.Warn("delay notification failed", "error", err)
	}
}

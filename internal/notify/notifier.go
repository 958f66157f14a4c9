// Package notify формирует и отправляет уведомления об итогах refresh.
//
// Два адресата: операторский канал (статус и список упавших процедур)
// и пользовательский канал (отчёты готовы, ссылка на портал).
// Отправка — best effort: сбой уведомления логируется, но не меняет
// итог батча.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Refresher/internal/domain"
)

// Publisher — транспорт уведомлений (обычно mq.Publisher).
type Publisher interface {
	PublishStatus(ctx context.Context, subject string, payload any) error
	PublishReport(ctx context.Context, subject string, payload any) error
}

// FailureDetail — описание одной упавшей процедуры в уведомлении.
type FailureDetail struct {
	Procedure  string `json:"procedure"`
	DataSource string `json:"data_source,omitempty"`
	Error      string `json:"error"`
}

// StatusPayload — тело операторского уведомления.
type StatusPayload struct {
	Env        string          `json:"env"`
	Region     string          `json:"region"`
	Job        string          `json:"job"`
	BatchDate  string          `json:"batch_date"`
	Status     string          `json:"status"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Failures   []FailureDetail `json:"failures,omitempty"`
}

// ReportPayload — тело пользовательского уведомления о готовности отчётов.
type ReportPayload struct {
	Region    string `json:"region"`
	BatchDate string `json:"batch_date"`
	ReportURL string `json:"report_url"`
}

// Notifier отправляет уведомления по итогам run.
type Notifier struct {
	publisher Publisher
	env       string
	job       string
	reportURL string
	logger    *slog.Logger
}

// Config — конфигурация Notifier.
type Config struct {
	// Publisher — транспорт уведомлений.
	Publisher Publisher

	// Env — имя окружения для темы уведомления (например "PROD").
	Env string

	// Job — человекочитаемое имя задания.
	Job string

	// ReportURL — ссылка на портал отчётов для пользовательского уведомления.
	ReportURL string

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Notifier.
func New(cfg Config) *Notifier {
	job := cfg.Job
	if job == "" {
		job = "Report Refresh"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		publisher: cfg.Publisher,
		env:       cfg.Env,
		job:       job,
		reportURL: cfg.ReportURL,
		logger:    logger,
	}
}

// Notify отправляет уведомления по терминальному итогу run.
//
// Операторское статус-уведомление уходит всегда. Пользовательское —
// только при полном успехе: частично успешный run не анонсирует
// отчёты пользователям.
func (n *Notifier) Notify(ctx context.Context, run *domain.RunContext, outcome *domain.RunOutcome) error {
	subject := fmt.Sprintf("%s %s %s Successful", n.env, run.Region, n.job)
	if outcome.Status == domain.StatusFailed {
		subject = fmt.Sprintf("%s %s %s Failed", n.env, run.Region, n.job)
	}

	payload := StatusPayload{
		Env:        n.env,
		Region:     run.Region,
		Job:        n.job,
		BatchDate:  run.BatchDate.Format("2006-01-02"),
		Status:     string(outcome.Status),
		StartedAt:  outcome.StartedAt,
		FinishedAt: outcome.FinishedAt,
	}
	for _, f := range outcome.FailedUnits {
		payload.Failures = append(payload.Failures, FailureDetail{
			Procedure:  f.Unit.Name,
			DataSource: f.Unit.DataSourceLabel(),
			Error:      f.Error,
		})
	}

	if err := n.publisher.PublishStatus(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish status notification: %w", err)
	}

	if outcome.Status == domain.StatusFinished && len(outcome.FailedUnits) == 0 {
		userSubject := fmt.Sprintf("%s Reports are ready", run.Region)
		userPayload := ReportPayload{
			Region:    run.Region,
			BatchDate: run.BatchDate.Format("2006-01-02"),
			ReportURL: n.reportURL,
		}
		if err := n.publisher.PublishReport(ctx, userSubject, userPayload); err != nil {
			return fmt.Errorf("publish report notification: %w", err)
		}
	}

	return nil
}

// NotifyDelay отправляет операторское уведомление о задержанном run.
func (n *Notifier) NotifyDelay(ctx context.Context, run *domain.RunContext, reason string) error {
	subject := fmt.Sprintf("%s %s %s Delayed", n.env, run.Region, n.job)
	payload := StatusPayload{
		Env:       n.env,
		Region:    run.Region,
		Job:       n.job,
		BatchDate: run.BatchDate.Format("2006-01-02"),
		Status:    string(domain.StatusDelay),
		Failures: []FailureDetail{
			{Error: reason},
		},
	}
	if err := n.publisher.PublishStatus(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish delay notification: %w", err)
	}
	return nil
}

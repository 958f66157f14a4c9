package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Refresher/internal/domain"
)

// AuditRepo — репозиторий audit-журнала.
//
// Две таблицы:
//   - refresh_run_log — строка run, ключ (regionname, batchrundate,
//     report_source): статус, время старта/окончания, error_message.
//     Читается внешними мониторами, поэтому статус обязан быть
//     наблюдаемым и в середине run (InProgress, Delay).
//   - refresh_master_status — огрублённая dashboard-строка,
//     ключ (regionname, identifier).
type AuditRepo struct {
	pool *pgxpool.Pool
}

// NewAuditRepo создаёт новый AuditRepo.
func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

// RunLogRow — строка журнала run.
type RunLogRow struct {
	Region       string
	BatchDate    time.Time
	ReportSource string
	Status       domain.ExecutionStatus
	ErrorMessage string
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// GetRunLog возвращает строку журнала для тройки run.
func (r *AuditRepo) GetRunLog(ctx context.Context, region string, batchDate time.Time, source string) (*RunLogRow, error) {
	query := `
		SELECT regionname, batchrundate, report_source, execution_status,
		       error_message, actual_start_time, actual_end_time
		FROM audit.refresh_run_log
		WHERE regionname = $1 AND batchrundate = $2 AND report_source = $3
	`
	var row RunLogRow
	err := r.pool.QueryRow(ctx, query, region, dateOnly(batchDate), source).Scan(
		&row.Region,
		&row.BatchDate,
		&row.ReportSource,
		&row.Status,
		&row.ErrorMessage,
		&row.StartedAt,
		&row.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run log: %w", err)
	}
	return &row, nil
}

// InsertRunLog заводит строку журнала со статусом "Yet to start".
// Первая фиксация run для тройки (region, batch date, source).
func (r *AuditRepo) InsertRunLog(ctx context.Context, run *domain.RunContext) error {
	query := `
		INSERT INTO audit.refresh_run_log
			(regionname, batchrundate, report_source, execution_status, error_message)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		run.Region,
		dateOnly(run.BatchDate),
		run.ReportSource,
		domain.StatusYetToStart,
		domain.NullErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

// MarkSubmitted помечает run переданным на выполнение.
func (r *AuditRepo) MarkSubmitted(ctx context.Context, run *domain.RunContext, at time.Time) error {
	query := `
		UPDATE audit.refresh_run_log
		SET execution_status = $4, actual_start_time = $5, error_message = $6
		WHERE regionname = $1 AND batchrundate = $2 AND report_source = $3
	`
	result, err := r.pool.Exec(ctx, query,
		run.Region,
		dateOnly(run.BatchDate),
		run.ReportSource,
		domain.StatusSubmitted,
		at.UTC(),
		domain.NullErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("mark submitted: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRunStatus переводит строку журнала в указанный статус.
// Используется для InProgress в начале батча.
func (r *AuditRepo) UpdateRunStatus(ctx context.Context, run *domain.RunContext, status domain.ExecutionStatus) error {
	query := `
		UPDATE audit.refresh_run_log
		SET execution_status = $4
		WHERE regionname = $1 AND batchrundate = $2 AND report_source = $3
	`
	result, err := r.pool.Exec(ctx, query,
		run.Region, dateOnly(run.BatchDate), run.ReportSource, status,
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRunEnd фиксирует терминальный итог run в журнале.
func (r *AuditRepo) UpdateRunEnd(ctx context.Context, run *domain.RunContext, outcome *domain.RunOutcome) error {
	query := `
		UPDATE audit.refresh_run_log
		SET execution_status = $4, actual_end_time = $5, error_message = $6
		WHERE regionname = $1 AND batchrundate = $2 AND report_source = $3
	`
	result, err := r.pool.Exec(ctx, query,
		run.Region,
		dateOnly(run.BatchDate),
		run.ReportSource,
		outcome.Status,
		outcome.FinishedAt,
		outcome.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("update run end: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AnnotateDelay помечает незавершённый run статусом Delay с причиной.
// Не терминальный переход: строка остаётся в полёте для мониторов.
func (r *AuditRepo) AnnotateDelay(ctx context.Context, run *domain.RunContext, reason string) error {
	query := `
		UPDATE audit.refresh_run_log
		SET execution_status = $4, error_message = $5
		WHERE regionname = $1 AND batchrundate = $2 AND report_source = $3
	`
	_, err := r.pool.Exec(ctx, query,
		run.Region,
		dateOnly(run.BatchDate),
		run.ReportSource,
		domain.StatusDelay,
		reason,
	)
	if err != nil {
		return fmt.Errorf("annotate delay: %w", err)
	}
	return nil
}

// AnyInFlight проверяет, есть ли в полёте run того же report_source
// в другом регионе на ту же дату.
func (r *AuditRepo) AnyInFlight(ctx context.Context, batchDate time.Time, source, excludeRegion string) (bool, error) {
	query := `
		SELECT count(*)
		FROM audit.refresh_run_log
		WHERE batchrundate = $1 AND report_source = $2
		  AND regionname <> $3
		  AND execution_status IN ($4, $5)
	`
	var n int
	err := r.pool.QueryRow(ctx, query,
		dateOnly(batchDate), source, excludeRegion,
		domain.StatusSubmitted, domain.StatusInProgress,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check in-flight runs: %w", err)
	}
	return n > 0, nil
}

// ListRunLog возвращает последние строки журнала (для CLI).
func (r *AuditRepo) ListRunLog(ctx context.Context, limit int) ([]RunLogRow, error) {
	query := `
		SELECT regionname, batchrundate, report_source, execution_status,
		       error_message, actual_start_time, actual_end_time
		FROM audit.refresh_run_log
		ORDER BY batchrundate DESC, regionname ASC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list run log: %w", err)
	}
	defer rows.Close()

	var out []RunLogRow
	for rows.Next() {
		var row RunLogRow
		err := rows.Scan(
			&row.Region,
			&row.BatchDate,
			&row.ReportSource,
			&row.Status,
			&row.ErrorMessage,
			&row.StartedAt,
			&row.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run log: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// ResetRunLog возвращает строку журнала в "Yet to start" (ручной перезапуск).
func (r *AuditRepo) ResetRunLog(ctx context.Context, run *domain.RunContext) error {
	query := `
		UPDATE audit.refresh_run_log
		SET execution_status = $4, error_message = $5,
		    actual_start_time = NULL, actual_end_time = NULL
		WHERE regionname = $1 AND batchrundate = $2 AND report_source = $3
	`
	result, err := r.pool.Exec(ctx, query,
		run.Region,
		dateOnly(run.BatchDate),
		run.ReportSource,
		domain.StatusYetToStart,
		domain.NullErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("reset run log: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMasterStart фиксирует старт run в dashboard-строке.
func (r *AuditRepo) UpdateMasterStart(ctx context.Context, region, identifier string, at time.Time) error {
	query := `
		UPDATE audit.refresh_master_status
		SET actual_start_time = $3, status = $4
		WHERE regionname = $1 AND identifier = $2
	`
	_, err := r.pool.Exec(ctx, query, region, identifier, at.UTC(), domain.StatusInProgress.MasterStatus())
	if err != nil {
		return fmt.Errorf("update master start: %w", err)
	}
	return nil
}

// UpdateMasterStatus обновляет огрублённый статус dashboard-строки.
func (r *AuditRepo) UpdateMasterStatus(ctx context.Context, region, identifier, status string) error {
	query := `
		UPDATE audit.refresh_master_status
		SET status = $3
		WHERE regionname = $1 AND identifier = $2
	`
	_, err := r.pool.Exec(ctx, query, region, identifier, status)
	if err != nil {
		return fmt.Errorf("update master status: %w", err)
	}
	return nil
}

// GetMasterStatus возвращает dashboard-строку (для CLI).
func (r *AuditRepo) GetMasterStatus(ctx context.Context, region, identifier string) (string, *time.Time, error) {
	query := `
		SELECT status, actual_start_time
		FROM audit.refresh_master_status
		WHERE regionname = $1 AND identifier = $2
	`
	var status string
	var startedAt *time.Time
	err := r.pool.QueryRow(ctx, query, region, identifier).Scan(&status, &startedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("get master status: %w", err)
	}
	return status, startedAt, nil
}

// dateOnly обрезает время до датной части (batchrundate — тип date).
func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

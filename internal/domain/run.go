package domain

import (
	"fmt"
	"strings"
	"time"
)

// NullErrorMessage — сентинел для error_message успешного run.
// Исторический формат audit-схемы: строка "Null", не SQL NULL.
const NullErrorMessage = "Null"

// RunContext — идентичность одного оркестрированного батча.
//
// Для тройки (Region, BatchDate, ReportSource) одновременно активен
// не более чем один run; дубликаты отсекает гейт по существующей
// строке журнала до старта оркестратора.
type RunContext struct {
	// Region — регион отчёта (EMEA, AMS, APJ).
	Region string

	// BatchDate — дата батча. Используется только датная часть.
	BatchDate time.Time

	// ReportSource — класс run (SPDST, BMT).
	ReportSource string

	// Codebase — вариант worklist-фильтра (флаг priority-файлов
	// для BMT-пайплайнов; пустая строка — фильтр не применяется).
	Codebase string
}

// Key возвращает строковый ключ тройки для логов.
func (r *RunContext) Key() string {
	return fmt.Sprintf("%s/%s/%s", r.Region, r.BatchDate.Format(time.DateOnly), r.ReportSource)
}

// RunOutcome — персистируемый итог run.
type RunOutcome struct {
	// Status — текущий статус выполнения.
	Status ExecutionStatus

	// StartedAt — фактическое время старта батча.
	StartedAt *time.Time

	// FinishedAt — фактическое время завершения. Nil, пока run не завершён.
	FinishedAt *time.Time

	// ErrorMessage — фрагмент последней терминальной ошибки
	// либо NullErrorMessage после успеха.
	ErrorMessage string

	// FailedUnits — единицы, исчерпавшие бюджет повторов (пусто при успехе).
	// При fail-fast политике содержит не более одной записи.
	FailedUnits []FailureRecord
}

// NewRunOutcome создаёт итог для свежего run.
func NewRunOutcome() *RunOutcome {
	return &RunOutcome{
		Status:       StatusYetToStart,
		ErrorMessage: NullErrorMessage,
	}
}

// MarkInProgress переводит run в InProgress и фиксирует время старта.
func (o *RunOutcome) MarkInProgress() {
	now := time.Now().UTC()
	o.Status = StatusInProgress
	o.StartedAt = &now
}

// MarkFinished переводит run в Finished и сбрасывает error_message.
func (o *RunOutcome) MarkFinished() {
	now := time.Now().UTC()
	o.Status = StatusFinished
	o.FinishedAt = &now
	o.ErrorMessage = NullErrorMessage
}

// MarkFailed переводит run в Failed по первой единице, исчерпавшей повторы.
func (o *RunOutcome) MarkFailed(fr FailureRecord) {
	now := time.Now().UTC()
	o.Status = StatusFailed
	o.FinishedAt = &now
	o.ErrorMessage = ErrorFragment(fr.Error)
	o.FailedUnits = append(o.FailedUnits, fr)
}

// Duration возвращает продолжительность run. 0, если run не завершён.
func (o *RunOutcome) Duration() time.Duration {
	if o.StartedAt == nil || o.FinishedAt == nil {
		return 0
	}
	return o.FinishedAt.Sub(*o.StartedAt)
}

// ErrorFragment извлекает человекочитаемый фрагмент из структурной ошибки
// движка: часть после первого ':' (префикс обычно содержит код и контекст).
func ErrorFragment(detail string) string {
	if i := strings.Index(detail, ":"); i >= 0 {
		return strings.TrimSpace(detail[i+1:])
	}
	return detail
}

package domain

// ExecutionStatus — статус run в audit-журнале.
//
// Жизненный цикл:
//
//	Yet to start → Submitted → InProgress → Finished
//	                                      ↘ Failed
//
// Delay — не терминальный статус, а аннотация поверх незавершённого run
// (внешний гейт ещё не пропустил запуск или батч стартовал с опозданием).
type ExecutionStatus string

const (
	// StatusYetToStart — run заведён в журнале, но ещё не запускался.
	StatusYetToStart ExecutionStatus = "Yet to start"

	// StatusSubmitted — триггер передал run на выполнение.
	StatusSubmitted ExecutionStatus = "Submitted"

	// StatusInProgress — батч выполняется.
	StatusInProgress ExecutionStatus = "InProgress"

	// StatusFinished — все единицы работы выполнены успешно.
	StatusFinished ExecutionStatus = "Finished"

	// StatusFailed — единица работы исчерпала бюджет повторов.
	StatusFailed ExecutionStatus = "Failed"

	// StatusDelay — run задержан (файлы не готовы, чужой run в полёте).
	StatusDelay ExecutionStatus = "Delay"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusFailed:
		return true
	default:
		return false
	}
}

// InFlight возвращает true, если run уже передан на выполнение и не завершён.
// Используется гейтом против дублирующих запусков для одной тройки
// (region, batch date, report source).
func (s ExecutionStatus) InFlight() bool {
	switch s {
	case StatusSubmitted, StatusInProgress:
		return true
	default:
		return false
	}
}

// MasterStatus возвращает огрублённый статус для dashboard-строки.
func (s ExecutionStatus) MasterStatus() string {
	switch s {
	case StatusFinished:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return string(s)
	}
}

package engine

// Status — статус выражения в движке выполнения.
//
// Жизненный цикл:
//
//	SUBMITTED → PICKED → STARTED → FINISHED
//	                             ↘ FAILED
//	                             ↘ ABORTED
type Status string

const (
	// StatusSubmitted — выражение принято движком.
	StatusSubmitted Status = "SUBMITTED"

	// StatusPicked — выражение взято в работу.
	StatusPicked Status = "PICKED"

	// StatusStarted — выражение выполняется.
	StatusStarted Status = "STARTED"

	// StatusFinished — выражение выполнено успешно.
	StatusFinished Status = "FINISHED"

	// StatusFailed — выражение завершилось ошибкой.
	StatusFailed Status = "FAILED"

	// StatusAborted — выражение прервано на стороне движка.
	StatusAborted Status = "ABORTED"
)

// IsTerminal возвращает true, если статус финальный.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFinished, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

package runner

import "errors"

// Ошибки батча.
var (
	// ErrRetryExhausted — единица работы не выполнилась за бюджет повторов.
	// Батч остановлен, оставшиеся единицы не запускались.
	ErrRetryExhausted = errors.New("retry budget exhausted")

	// ErrAuditDegraded — батч завершился успешно, но записи audit-журнала
	// не удались после всех повторов. Итог валиден, журнал может отставать.
	ErrAuditDegraded = errors.New("audit trail degraded")

	// ErrWorklistUnavailable — worklist не удалось получить, батч не стартовал.
	ErrWorklistUnavailable = errors.New("worklist unavailable")
)

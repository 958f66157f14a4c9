package engine

import "errors"

// Ошибки движка выполнения.
var (
	// ErrSubmit — движок отклонил отправку выражения.
	ErrSubmit = errors.New("submit statement failed")

	// ErrDescribe — не удалось запросить статус выражения.
	ErrDescribe = errors.New("describe statement failed")
)

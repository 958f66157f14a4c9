// Package runner — оркестратор одного refresh-батча.
//
// Последовательность: фиксация старта в audit-журнале, выборка worklist,
// строго последовательное выполнение единиц работы с bounded retry,
// fail-fast на первой единице, исчерпавшей повторы, фиксация итога
// и уведомления.
//
// Структура:
//   - runner.go — state machine батча
//   - retry.go  — бюджет повторов одной единицы работы
//   - errors.go — сентинел-ошибки для exit-кодов
package runner

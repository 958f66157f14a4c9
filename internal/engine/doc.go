// Package engine — клиент асинхронного движка выполнения (Redshift Data API).
//
// Включает:
//   - Client — отправка одного выражения и опрос его статуса
//   - Poller — доведение выражения до терминального статуса с фиксированным
//     интервалом опроса
//
// Движок асинхронный: Submit возвращает идентификатор сразу, завершение
// отслеживается через Describe. Терминальные статусы: FINISHED, FAILED,
// ABORTED.
package engine

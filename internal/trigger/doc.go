// Package trigger — гейт-сервис запуска refresh-батчей.
//
// Каждый тик гейт оценивает условия запуска для своего региона:
// дубликат run на ту же дату, чужой run того же источника в полёте,
// готовность priority-файлов, cutoff-окно. Проходной тик помечает run
// переданным и запускает оркестратор.
//
// Структура:
//   - trigger.go — решение одного тика
//   - cutoff.go  — cutoff-окно поверх cron-расписания
package trigger

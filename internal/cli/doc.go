// Package cli содержит команды операторского CLI.
//
// Структура:
//   - runs.go   — команды просмотра и перезапуска runs по audit-журналу
//   - output.go — форматирование вывода (таблица или JSON)
//
// CLI работает напрямую с audit-базой: отдельного API-сервера
// у Refresher нет, журнал и есть интерфейс состояния.
package cli

// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация уведомлений
//
// Типы сообщений:
//   - notify.status — операторское уведомление о статусе refresh
//   - notify.report — пользовательское уведомление о готовности отчётов
//
// Exchanges:
//   - refresher.notifications — все исходящие уведомления
//
// Потребителей внутри модуля нет: очереди читают внешние
// подписчики (операторские каналы, почтовый шлюз).
package mq

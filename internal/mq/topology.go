package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeNotifications Exchange = "refresher.notifications"
)

// Queues — имена очередей.
const (
	// QueueStatus — операторские статус-уведомления (успех/провал refresh).
	QueueStatus Queue = "notifications.status"

	// QueueReports — пользовательские уведомления о готовности отчётов.
	QueueReports Queue = "notifications.reports"
)

// Routing keys.
const (
	RoutingKeyStatus  RoutingKey = "status"
	RoutingKeyReports RoutingKey = "reports"
)

// SetupTopology объявляет exchange и очереди уведомлений.
func SetupTopology(conn *Connection) error {
	return conn.WithChannel(func(ch *amqp.Channel) error {
		// 1. Создаём exchange
		err := ch.ExchangeDeclare(
			string(ExchangeNotifications), // name
			"direct",                      // type
			true,                          // durable
			false,                         // auto-deleted
			false,                         // internal
			false,                         // no-wait
			nil,                           // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeNotifications, err)
		}

		// 2. Создаём queues и привязываем к exchange
		bindings := []struct {
			queue      Queue
			routingKey RoutingKey
		}{
			{QueueStatus, RoutingKeyStatus},
			{QueueReports, RoutingKeyReports},
		}

		for _, b := range bindings {
			_, err := ch.QueueDeclare(
				string(b.queue), // name
				true,            // durable
				false,           // delete when unused
				false,           // exclusive
				false,           // no-wait
				nil,             // arguments
			)
			if err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}

			err = ch.QueueBind(
				string(b.queue),      // queue name
				string(b.routingKey), // routing key
				string(ExchangeNotifications), // exchange
				false, // no-wait
				nil,   // arguments
			)
			if err != nil {
				return fmt.Errorf("bind queue %s: %w", b.queue, err)
			}
		}

		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Refresher RabbitMQ Topology:

    refresher.notifications (direct)
    ├── notifications.status [routing: status]
    │       Consumer: operator channels (external)
    └── notifications.reports [routing: reports]
            Consumer: mail gateway (external)
  `
}

package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	// ExchangeJobs получает события жизненного цикла jobs.
	ExchangeJobs Exchange = "amplicore.jobs"

	// QueueJobEvents накапливает все события jobs для внешних потребителей.
	QueueJobEvents Queue = "jobs.events"
)

// Routing keys событий. Ключи совпадают с типами сообщений.
const (
	RoutingKeyJobStarted   RoutingKey = "job.started"
	RoutingKeyJobFinished  RoutingKey = "job.finished"
	RoutingKeyJobCancelled RoutingKey = "job.cancelled"
	RoutingKeyJobOrphaned  RoutingKey = "job.orphaned"

	// RoutingKeyAllJobs подписывает очередь на все события jobs.
	RoutingKeyAllJobs RoutingKey = "job.#"
)

// SetupTopology объявляет обменник, очередь и привязку. Операция идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeJobs),
			amqp.ExchangeTopic,
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeJobs, err)
		}

		_, err = ch.QueueDeclare(
			string(QueueJobEvents),
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueJobEvents, err)
		}

		if err := ch.QueueBind(string(QueueJobEvents), string(RoutingKeyAllJobs), string(ExchangeJobs), false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", QueueJobEvents, err)
		}
		return nil
	})
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Amplicore RabbitMQ Topology:

    amplicore.jobs (topic)
    └── jobs.events [routing: job.#]
            job.started | job.finished | job.cancelled | job.orphaned
`
}

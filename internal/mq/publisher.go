package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker/v2"

	"github.com/shaiso/Amplicore/internal/domain"
)

// MessageType — тип сообщения.
type MessageType string

// Типы сообщений о jobs.
const (
	MessageTypeJobStarted   MessageType = "job.started"
	MessageTypeJobFinished  MessageType = "job.finished"
	MessageTypeJobCancelled MessageType = "job.cancelled"
	MessageTypeJobOrphaned  MessageType = "job.orphaned"
)

// Message — конверт публикуемого сообщения.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// JobEventPayload — содержимое события о job.
type JobEventPayload struct {
	JobID     uuid.UUID        `json:"job_id"`
	ProjectID string           `json:"project_id,omitempty"`
	StepName  string           `json:"step_name,omitempty"`
	ToolName  string           `json:"tool_name"`
	Status    domain.JobStatus `json:"status"`
	ExitCode  *int             `json:"exit_code,omitempty"`
}

// NewJobEventPayload собирает payload из job.
func NewJobEventPayload(job *domain.Job) JobEventPayload {
	return JobEventPayload{
		JobID:     job.ID,
		ProjectID: job.ProjectID,
		StepName:  job.StepName,
		ToolName:  job.ToolName,
		Status:    job.Status,
		ExitCode:  job.ExitCode,
	}
}

// EventTypeFor выбирает тип события по статусу job.
func EventTypeFor(status domain.JobStatus) MessageType {
	switch status {
	case domain.JobStatusRunning:
		return MessageTypeJobStarted
	case domain.JobStatusCancelled:
		return MessageTypeJobCancelled
	case domain.JobStatusOrphaned:
		return MessageTypeJobOrphaned
	default:
		return MessageTypeJobFinished
	}
}

// PublisherConfig — настройки Publisher.
type PublisherConfig struct {
	// MaxFailures подряд открывают breaker (default: 5).
	MaxFailures uint32

	// OpenTimeout — время в состоянии open перед пробным запросом (default: 30s).
	OpenTimeout time.Duration
}

// Publisher публикует события jobs.
//
// Публикация идёт через circuit breaker: пока брокер недоступен, события
// отбрасываются сразу, не задерживая монитор и запуск jobs.
type Publisher struct {
	conn    *Connection
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "amqp:publish",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Publisher{conn: conn, logger: logger, breaker: breaker}
}

// Publish публикует сообщение в exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
			return ch.PublishWithContext(ctx,
				string(exchange),
				string(routingKey),
				false, // mandatory
				false, // immediate
				amqp.Publishing{
					ContentType:  "application/json",
					DeliveryMode: amqp.Persistent,
					MessageId:    msg.ID,
					Type:         string(msg.Type),
					Timestamp:    msg.Timestamp,
					Body:         body,
				},
			)
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("publish %s: broker unavailable: %w", routingKey, err)
		}
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
	)
	return nil
}

// PublishJobEvent публикует событие о смене статуса job.
func (p *Publisher) PublishJobEvent(ctx context.Context, job *domain.Job) error {
	msgType := EventTypeFor(job.Status)
	msg := &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   NewJobEventPayload(job),
		Timestamp: time.Now().UTC(),
	}
	return p.Publish(ctx, ExchangeJobs, RoutingKey(msgType), msg)
}

// State возвращает состояние breaker.
func (p *Publisher) State() gobreaker.State {
	return p.breaker.State()
}

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

const (
	RoutingSubmissionTurnedIn = "submission.turned_in"
	RoutingSubmissionGraded   = "submission.graded"
)

type EventPublisher interface {
	PublishSubmissionTurnedIn(ctx context.Context, event *models.SubmissionTurnedInEvent) error
	PublishSubmissionGraded(ctx context.Context, event *models.SubmissionGradedEvent) error
	PublishCertificateIssued(ctx context.Context, event *models.CertificateIssuedEvent) error
	Close() error
}

type rabbitMQClient struct {
	conn           *amqp.Connection
	channel        *amqp.Channel
	exchange       string
	certificateKey string
	logger         zerolog.Logger
}

// NewRabbitMQClient declares the exchange and the certificate render queue
// bound to certificateKey, and returns a publisher on that exchange.
func NewRabbitMQClient(url, exchange, certificateKey, renderQueue string, logger zerolog.Logger) (EventPublisher, *amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	queue, err := channel.QueueDeclare(
		renderQueue, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(queue.Name, certificateKey, exchange, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	logger.Info().
		Str("exchange", exchange).
		Str("queue", queue.Name).
		Str("routing_key", certificateKey).
		Msg("Connected to RabbitMQ")

	return &rabbitMQClient{
		conn:           conn,
		channel:        channel,
		exchange:       exchange,
		certificateKey: certificateKey,
		logger:         logger,
	}, conn, nil
}

func (c *rabbitMQClient) PublishSubmissionTurnedIn(ctx context.Context, event *models.SubmissionTurnedInEvent) error {
	return c.publish(ctx, RoutingSubmissionTurnedIn, event)
}

func (c *rabbitMQClient) PublishSubmissionGraded(ctx context.Context, event *models.SubmissionGradedEvent) error {
	return c.publish(ctx, RoutingSubmissionGraded, event)
}

func (c *rabbitMQClient) PublishCertificateIssued(ctx context.Context, event *models.CertificateIssuedEvent) error {
	return c.publish(ctx, c.certificateKey, event)
}

func (c *rabbitMQClient) publish(ctx context.Context, routingKey string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		publishCtx,
		c.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	c.logger.Debug().Str("routing_key", routingKey).Msg("Event published")
	return nil
}

func (c *rabbitMQClient) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to close RabbitMQ channel")
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	return nil
}

// NewNoopPublisher drops events. It stands in when RabbitMQ is unreachable
// so the HTTP API keeps working during development.
func NewNoopPublisher(logger zerolog.Logger) EventPublisher {
	return noopPublisher{logger: logger}
}

type noopPublisher struct {
	logger zerolog.Logger
}

func (p noopPublisher) PublishSubmissionTurnedIn(_ context.Context, e *models.SubmissionTurnedInEvent) error {
	p.logger.Debug().Str("submission_id", e.SubmissionID).Msg("Dropping submission event, broker disabled")
	return nil
}

func (p noopPublisher) PublishSubmissionGraded(_ context.Context, e *models.SubmissionGradedEvent) error {
	p.logger.Debug().Str("submission_id", e.SubmissionID).Msg("Dropping grade event, broker disabled")
	return nil
}

func (p noopPublisher) PublishCertificateIssued(_ context.Context, e *models.CertificateIssuedEvent) error {
	p.logger.Debug().Str("certificate_id", e.CertificateID).Msg("Dropping certificate event, broker disabled")
	return nil
}

func (p noopPublisher) Close() error { return nil }

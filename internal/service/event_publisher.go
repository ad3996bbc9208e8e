// Package service holds outbound integrations. The AMQP publisher delivers
// auth events to the message broker; errors are logged and returned so
// callers can ignore failures without interrupting the main request flow.
package service

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/taskdesk/taskdesk/internal/queue"
)

// AMQPPublisher publishes auth events to the durable auth.events queue. A
// fresh connection is dialed per publish; auth events are rare enough that
// connection churn is cheaper than managing a long-lived channel.
type AMQPPublisher struct {
	URL    string
	Logger zerolog.Logger
}

func NewAMQPPublisher(url string, logger zerolog.Logger) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Logger: logger}
}

// Publish sends one event. Messages are marked persistent so they survive
// broker restarts. The function never panics; any error is logged and
// returned for the caller to swallow.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.AuthEvent) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Logger.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Logger.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		queue.AuthEventsQueue, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	); err != nil {
		p.Logger.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		p.Logger.Warn().Err(err).Msg("rabbitmq: marshal event failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.AuthEventsQueue, false, false, pub); err != nil {
		p.Logger.Warn().Err(err).Str("type", ev.Type).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

package events

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
)

// Publisher sends click messages to the broker. Publishing goes through a
// circuit breaker so a dead broker fails fast instead of stalling the
// goroutines dispatched from the redirect path.
type Publisher struct {
	ch      *amqp.Channel
	queue   string
	breaker *gobreaker.CircuitBreaker
}

// NewPublisher opens a channel on the given connection and declares the
// click queue as durable so events survive broker restarts.
func NewPublisher(conn *amqp.Connection, queue string) (*Publisher, error) {
	if queue == "" {
		queue = DefaultClickQueue
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "click-publisher",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Publisher{ch: ch, queue: queue, breaker: breaker}, nil
}

// Publish sends one click message. When the breaker is open the call
// returns gobreaker.ErrOpenState immediately.
func (p *Publisher) Publish(ctx context.Context, msg ClickMessage) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		body, err := json.Marshal(msg)
		if err != nil {
			return nil, err
		}
		return nil, p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   msg.OccurredAt,
			Body:        body,
		})
	})
	return err
}

// Close releases the underlying channel.
func (p *Publisher) Close() error {
	return p.ch.Close()
}

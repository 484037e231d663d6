// Package worker consumes click events from RabbitMQ and maintains
// per-day click rollups, keeping heavier analytics writes off the
// redirect path.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/tinylink-io/tinylink/internal/events"
)

// Aggregator consumes click messages and upserts daily per-code counts.
type Aggregator struct {
	db     *pgxpool.Pool
	conn   *amqp.Connection
	queue  string
	logger *slog.Logger
}

// New creates an aggregator bound to the given queue.
func New(db *pgxpool.Pool, conn *amqp.Connection, queue string, logger *slog.Logger) *Aggregator {
	if queue == "" {
		queue = events.DefaultClickQueue
	}
	return &Aggregator{db: db, conn: conn, queue: queue, logger: logger}
}

// Run consumes the click queue until ctx is cancelled or the delivery
// channel closes. Messages are acked only after the rollup write commits;
// failed writes are requeued.
func (a *Aggregator) Run(ctx context.Context) error {
	ch, err := a.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(a.queue, true, false, false, false, nil); err != nil {
		return err
	}

	deliveries, err := ch.Consume(a.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	a.logger.Info("click aggregator started", slog.String("queue", a.queue))

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("click aggregator stopped")
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}
			a.handle(ctx, delivery)
		}
	}
}

func (a *Aggregator) handle(ctx context.Context, delivery amqp.Delivery) {
	var msg events.ClickMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		a.logger.Warn("dropping malformed click message", slog.String("error", err.Error()))
		_ = delivery.Nack(false, false)
		return
	}

	if err := a.record(ctx, msg); err != nil {
		a.logger.Error("failed to record click rollup",
			slog.String("code", msg.ShortCode),
			slog.String("error", err.Error()))
		_ = delivery.Nack(false, true)
		return
	}

	_ = delivery.Ack(false)
}

// record bumps the per-day counter for the message's short code.
func (a *Aggregator) record(ctx context.Context, msg events.ClickMessage) error {
	query := `
		INSERT INTO click_stats_daily (short_code, day, clicks)
		VALUES ($1, $2::date, 1)
		ON CONFLICT (short_code, day)
		DO UPDATE SET clicks = click_stats_daily.clicks + 1
	`
	_, err := a.db.Exec(ctx, query, msg.ShortCode, msg.OccurredAt.UTC())
	return err
}

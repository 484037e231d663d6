package testutil

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/testcontainers/testcontainers-go"
	rabbitTC "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/tinylink-io/tinylink/internal/infra"
)

// TestQueue holds test broker resources
type TestQueue struct {
	Conn      *amqp.Connection
	container *rabbitTC.RabbitMQContainer
}

// SetupTestQueue creates a new test RabbitMQ container
func SetupTestQueue(ctx context.Context) (*TestQueue, error) {
	container, err := rabbitTC.Run(ctx,
		"rabbitmq:3.12-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		if terr := container.Terminate(ctx); terr != nil {
			err = terr
		}
		return nil, err
	}

	conn, err := infra.NewAMQPConnection(amqpURL)
	if err != nil {
		if terr := container.Terminate(ctx); terr != nil {
			err = terr
		}
		return nil, err
	}

	return &TestQueue{Conn: conn, container: container}, nil
}

// Teardown closes connections and terminates container
func (t *TestQueue) Teardown(ctx context.Context) {
	if t.Conn != nil {
		t.Conn.Close()
	}
	if t.container != nil {
		if err := t.container.Terminate(ctx); err != nil {
			return
		}
	}
}

// Package rabbitmq provides the broker intake: a generic consumer that feeds
// deliveries to a handler through a bounded worker pool.
package rabbitmq

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"reelstream/config"
)

type Consumer[T any] interface {
	Consume(ctx context.Context, dependencies T) error
}

type consumer[T any] struct {
	conn       *amqp.Connection
	cfg        *config.RabbitMQ
	handler    func(ctx context.Context, msg amqp.Delivery, dependencies T) error
	numWorkers int
}

func NewConsumer[T any](
	conn *amqp.Connection,
	cfg *config.RabbitMQ,
	numWorkers int,
	handler func(ctx context.Context, msg amqp.Delivery, dependencies T) error,
) Consumer[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &consumer[T]{
		conn:       conn,
		cfg:        cfg,
		handler:    handler,
		numWorkers: numWorkers,
	}
}

// Consume declares the configured topology and pumps deliveries until ctx is
// cancelled or the channel closes. Messages are acked whether or not the
// handler succeeded; a job that must not be lost is persisted before it is
// published.
func (c consumer[T]) Consume(ctx context.Context, dependencies T) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	deliveries, err := c.openQueue(ctx, ch)
	if err != nil {
		return err
	}

	jobs := make(chan amqp.Delivery, c.numWorkers)
	var wg sync.WaitGroup
	for i := 0; i < c.numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range jobs {
				if err := c.handler(ctx, msg, dependencies); err != nil {
					zerolog.Ctx(ctx).Error().Err(err).Msg("failed to handle message")
				}
				if err := msg.Ack(false); err != nil {
					zerolog.Ctx(ctx).Error().Err(err).Msg("failed to acknowledge message")
				}
			}
		}()
	}

	for {
		select {
		case delivery, ok := <-deliveries:
			if !ok {
				close(jobs)
				wg.Wait()
				return nil
			}
			jobs <- delivery
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
}

func (c consumer[T]) openQueue(ctx context.Context, ch *amqp.Channel) (<-chan amqp.Delivery, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("exchange", c.cfg.ExchangeName).
		Str("queue", c.cfg.QueueName).
		Logger()

	if err := ch.ExchangeDeclare(c.cfg.ExchangeName, c.cfg.Kind, true, false, false, false, nil); err != nil {
		logger.Error().Err(err).Msg("failed to declare exchange")
		return nil, err
	}
	q, err := ch.QueueDeclare(c.cfg.QueueName, false, false, false, false, nil)
	if err != nil {
		logger.Error().Err(err).Msg("failed to declare queue")
		return nil, err
	}
	if err := ch.QueueBind(q.Name, c.cfg.BindingKey, c.cfg.ExchangeName, false, nil); err != nil {
		logger.Error().Err(err).Msg("failed to bind queue")
		return nil, err
	}
	if err := ch.Qos(c.numWorkers, 0, false); err != nil {
		logger.Error().Err(err).Msg("failed to set QoS")
		return nil, err
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		logger.Error().Err(err).Msg("failed to consume queue")
		return nil, err
	}
	logger.Info().Str("binding_key", c.cfg.BindingKey).Msg("consuming transcode requests")
	return deliveries, nil
}

// Package amqp provides a queue port over a RabbitMQ queue, so the same
// worker core can drain AMQP deployments. Descriptors travel in the same
// JSON wire format as the Redis port.
package amqp

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/splitice/go-resque/errors"
	"github.com/splitice/go-resque/job"
)

// Queue is a single named AMQP queue.
type Queue struct {
	mu         sync.Mutex
	name       string
	options    Options
	codec      *job.Codec
	connection *amqp.Connection
	channel    *amqp.Channel
	declared   bool
}

// NewQueue creates an AMQP queue port. No connection is made until Connect.
func NewQueue(name string, options Options) *Queue {
	codec := options.Codec
	if codec == nil {
		codec = job.NewCodec()
	}
	return &Queue{
		name:    name,
		options: options,
		codec:   codec,
	}
}

// Name returns the stable queue identifier.
func (q *Queue) Name() string { return q.name }

// Connect dials the broker and opens a channel.
func (q *Queue) Connect(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	conn, err := amqp.Dial(q.options.URI)
	if err != nil {
		return errors.NewConnectionError(q.options.URI,
			fmt.Errorf("failed to connect to RabbitMQ: %w", err))
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.NewConnectionError(q.options.URI,
			fmt.Errorf("failed to open channel: %w", err))
	}

	if q.options.PrefetchCount > 0 {
		if err := ch.Qos(q.options.PrefetchCount, 0, false); err != nil {
			ch.Close()
			conn.Close()
			return errors.NewConnectionError(q.options.URI,
				fmt.Errorf("failed to set QoS: %w", err))
		}
	}

	q.connection = conn
	q.channel = ch
	return nil
}

// Close shuts down the channel and connection.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.channel != nil {
		q.channel.Close()
		q.channel = nil
	}
	if q.connection != nil {
		err := q.connection.Close()
		q.connection = nil
		return err
	}
	return nil
}

// Pop fetches the next descriptor with a basic.get, or nil when the queue is
// empty. Messages are auto-acked: the at-least-once contract is the same as
// the Redis port's LPOP.
func (q *Queue) Pop(ctx context.Context) (*job.Descriptor, error) {
	ch, err := q.readyChannel()
	if err != nil {
		return nil, err
	}

	delivery, ok, err := ch.Get(q.name, true)
	if err != nil {
		return nil, errors.NewQueueError("pop", q.name, err)
	}
	if !ok {
		return nil, nil
	}

	d, err := q.codec.Decode(delivery.Body)
	if err != nil {
		return nil, errors.NewQueueError("pop", q.name, err)
	}
	d.Queue = q.name
	return d, nil
}

// Push publishes a descriptor to the queue.
func (q *Queue) Push(ctx context.Context, d *job.Descriptor) error {
	ch, err := q.readyChannel()
	if err != nil {
		return err
	}

	data, err := q.codec.Encode(d)
	if err != nil {
		return errors.NewQueueError("push", q.name, err)
	}

	err = ch.PublishWithContext(ctx, "", q.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp.Persistent,
	})
	if err != nil {
		return errors.NewQueueError("push", q.name, err)
	}
	return nil
}

// Size returns the server-reported message count.
func (q *Queue) Size(ctx context.Context) (int64, error) {
	ch, err := q.readyChannel()
	if err != nil {
		return 0, err
	}

	state, err := ch.QueueDeclarePassive(q.name, true, false, false, false, nil)
	if err != nil {
		return 0, errors.NewQueueError("size", q.name, err)
	}
	return int64(state.Messages), nil
}

// readyChannel returns the open channel, declaring the queue on first use.
func (q *Queue) readyChannel() (*amqp.Channel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.channel == nil {
		return nil, errors.ErrNotConnected
	}
	if !q.declared {
		_, err := q.channel.QueueDeclare(q.name, true, false, false, false, nil)
		if err != nil {
			return nil, errors.NewQueueError("declare", q.name, err)
		}
		q.declared = true
	}
	return q.channel, nil
}

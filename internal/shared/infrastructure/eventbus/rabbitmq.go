package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the topic exchange all domain events go to.
	ExchangeName = "todo.domain.events"
	// DefaultQueueName is the shared, durable consumer queue.
	DefaultQueueName = "todo.consumer"
)

func declareExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil)
}

// RabbitMQPublisher publishes persistent JSON messages to the exchange.
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	logger   *slog.Logger
}

// NewRabbitMQPublisher dials url and declares the exchange.
func NewRabbitMQPublisher(url string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open channel: %w", err), conn.Close())
	}
	if err := declareExchange(ch, ExchangeName); err != nil {
		return nil, errors.Join(fmt.Errorf("declare exchange: %w", err), ch.Close(), conn.Close())
	}

	logger.Info("RabbitMQ publisher connected", "exchange", ExchangeName)
	return &RabbitMQPublisher{conn: conn, channel: ch, exchange: ExchangeName, logger: logger}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.logger.DebugContext(ctx, "message published", "routing_key", routingKey, "size", len(payload))
	return nil
}

// Ping reports whether the connection is still open.
func (p *RabbitMQPublisher) Ping(context.Context) error {
	if p.conn.IsClosed() {
		return amqp.ErrClosed
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.channel.Close(), p.conn.Close())
}

// RabbitMQConsumerConfig configures a RabbitMQConsumer.
type RabbitMQConsumerConfig struct {
	URL string
	// QueueName defaults to DefaultQueueName. Ignored when Exclusive.
	QueueName string
	// Exclusive declares a server-named, auto-deleted queue so that every
	// process receives its own copy of each event.
	Exclusive bool
	Logger    *slog.Logger
}

// RabbitMQConsumer binds a queue to the exchange and dispatches
// deliveries to a ConsumerRegistry.
type RabbitMQConsumer struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	registry *ConsumerRegistry
	logger   *slog.Logger
}

// NewRabbitMQConsumer dials, declares the exchange and queue, and binds
// every routing key currently in registry.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *ConsumerRegistry) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueName == "" && !cfg.Exclusive {
		cfg.QueueName = DefaultQueueName
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("open channel: %w", err), conn.Close())
	}
	if err := declareExchange(ch, ExchangeName); err != nil {
		return nil, errors.Join(fmt.Errorf("declare exchange: %w", err), ch.Close(), conn.Close())
	}

	name := cfg.QueueName
	if cfg.Exclusive {
		name = ""
	}
	q, err := ch.QueueDeclare(name, !cfg.Exclusive, cfg.Exclusive, cfg.Exclusive, false, nil)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("declare queue: %w", err), ch.Close(), conn.Close())
	}

	c := &RabbitMQConsumer{conn: conn, channel: ch, queue: q.Name, registry: registry, logger: cfg.Logger}
	for _, key := range registry.EventTypes() {
		if err := c.Bind(key); err != nil {
			return nil, errors.Join(err, c.Close())
		}
	}

	cfg.Logger.Info("RabbitMQ consumer connected", "queue", q.Name, "exchange", ExchangeName)
	return c, nil
}

// Bind routes routingKey to the consumer's queue.
func (c *RabbitMQConsumer) Bind(routingKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.channel.QueueBind(c.queue, routingKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", routingKey, err)
	}
	return nil
}

// Start consumes until ctx ends or the channel closes. Handler failures
// are requeued; malformed envelopes are logged and dropped.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}
	deliveries, err := c.channel.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	c.logger.Info("consuming events", "queue", c.queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *RabbitMQConsumer) handle(ctx context.Context, d amqp.Delivery) {
	event, err := Decode(d.Body, d.RoutingKey)
	if err != nil {
		c.logger.ErrorContext(ctx, "dropping malformed message", "routing_key", d.RoutingKey, "error", err)
		if err := d.Reject(false); err != nil {
			c.logger.ErrorContext(ctx, "reject failed", "error", err)
		}
		return
	}

	if err := c.registry.Dispatch(ctx, event); err != nil {
		if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
			c.logger.ErrorContext(ctx, "nack failed", "error", nackErr)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		c.logger.ErrorContext(ctx, "ack failed", "error", err)
	}
}

func (c *RabbitMQConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.channel.Close(), c.conn.Close())
}

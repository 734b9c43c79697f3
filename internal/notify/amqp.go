package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

const maxDialDelay = 60 * time.Second

// DialOptions controls DialWithRetry.
type DialOptions struct {
	URL           string
	RetryAttempts int
	Delay         time.Duration
	Logger        *zap.Logger
}

// DialWithRetry connects to RabbitMQ with capped exponential backoff.
func DialWithRetry(ctx context.Context, opts DialOptions) (*amqp091.Connection, error) {
	attempts := opts.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		conn, err := amqp091.Dial(opts.URL)
		if err == nil {
			if i > 1 {
				opts.Logger.Info("rabbit connected", zap.Int("attempt", i))
			}
			return conn, nil
		}
		lastErr = err
		if i == attempts {
			break
		}

		sleep := opts.Delay * time.Duration(math.Pow(2, float64(i-1)))
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}
		opts.Logger.Warn("rabbit dial failed",
			zap.Int("attempt", i),
			zap.Duration("sleep", sleep),
			zap.Error(err))
		if !sleepCtx(ctx, sleep) {
			return nil, fmt.Errorf("dial cancelled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, lastErr)
}

func declareExchange(ch *amqp091.Channel, exchange string) error {
	return ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil)
}

// AMQPPublisher publishes events to a topic exchange using the channel name as routing key.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	exchange string
	producer string
	logger   *zap.Logger
}

// NewAMQPPublisher declares the exchange and returns a publisher owning conn.
func NewAMQPPublisher(conn *amqp091.Connection, exchange, producer string, logger *zap.Logger) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	defer ch.Close()
	if err := declareExchange(ch, exchange); err != nil {
		return nil, err
	}
	return &AMQPPublisher{conn: conn, exchange: exchange, producer: producer, logger: logger}, nil
}

// Publish sends one persistent message per event.
func (p *AMQPPublisher) Publish(ctx context.Context, channel string, event domain.MessageCreated) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	body, err := Encode(event, p.producer)
	if err != nil {
		return err
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	err = ch.PublishWithContext(ctx, p.exchange, channel, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    event.ID,
		Type:         EventTypeMessageCreated,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	p.logger.Debug("published event",
		zap.String("exchange", p.exchange),
		zap.String("routing_key", channel),
		zap.String("ticket_id", event.TicketID))
	return nil
}

// Close closes the underlying connection.
func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}

type amqpSubscription struct {
	ch          *amqp091.Channel
	consumerTag string
	done        chan struct{}
}

// AMQPChannel consumes events through an exclusive auto-delete queue per subscription.
// Brokers do not retain fanned-out events, so ReplayAll behaves like ReplayNew.
type AMQPChannel struct {
	conn     *amqp091.Connection
	exchange string
	logger   *zap.Logger

	mu   sync.Mutex
	subs map[string]*amqpSubscription
}

// NewAMQPChannel builds a channel on an existing connection.
func NewAMQPChannel(conn *amqp091.Connection, exchange string, logger *zap.Logger) *AMQPChannel {
	return &AMQPChannel{
		conn:     conn,
		exchange: exchange,
		logger:   logger,
		subs:     make(map[string]*amqpSubscription),
	}
}

// Subscribe binds a private queue to the exchange and starts consuming.
func (c *AMQPChannel) Subscribe(ctx context.Context, channel string, replay ReplayPolicy, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: nil handler", ErrSubscription)
	}
	if c.conn == nil || c.conn.IsClosed() {
		return nil, fmt.Errorf("%w: connection closed", ErrSubscription)
	}
	if replay == ReplayAll {
		c.logger.Warn("replay not supported by amqp transport; delivering new events only", zap.String("channel", channel))
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscription, err)
	}
	deliveries, tag, err := c.bind(ch, channel)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("%w: %v", ErrSubscription, err)
	}

	sub := &Subscription{ID: tag, Channel: channel}
	state := &amqpSubscription{ch: ch, consumerTag: tag, done: make(chan struct{})}
	c.mu.Lock()
	c.subs[sub.ID] = state
	c.mu.Unlock()

	go c.consume(state.done, deliveries, handler)

	c.logger.Info("subscribed to channel", zap.String("channel", channel), zap.String("subscription_id", sub.ID))
	return sub, nil
}

func (c *AMQPChannel) bind(ch *amqp091.Channel, routingKey string) (<-chan amqp091.Delivery, string, error) {
	if err := declareExchange(ch, c.exchange); err != nil {
		return nil, "", err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, "", err
	}
	if err := ch.QueueBind(q.Name, routingKey, c.exchange, false, nil); err != nil {
		return nil, "", err
	}
	tag := uuid.NewString()
	deliveries, err := ch.Consume(q.Name, tag, true, true, false, false, nil)
	if err != nil {
		return nil, "", err
	}
	return deliveries, tag, nil
}

func (c *AMQPChannel) consume(done chan<- struct{}, deliveries <-chan amqp091.Delivery, handler Handler) {
	defer close(done)
	for d := range deliveries {
		event, err := Decode(d.Body)
		if err != nil {
			c.logger.Warn("dropping undecodable event", zap.String("message_id", d.MessageId), zap.Error(err))
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		handler(ctx, event)
		cancel()
	}
}

// Unsubscribe cancels the consumer and closes its AMQP channel.
func (c *AMQPChannel) Unsubscribe(ctx context.Context, sub *Subscription) error {
	if sub == nil {
		return nil
	}
	c.mu.Lock()
	state, ok := c.subs[sub.ID]
	delete(c.subs, sub.ID)
	c.mu.Unlock()
	if !ok {
		return nil
	}

	var errs []error
	if err := state.ch.Cancel(state.consumerTag, false); err != nil && !errors.Is(err, amqp091.ErrClosed) {
		errs = append(errs, err)
	}
	if err := state.ch.Close(); err != nil && !errors.Is(err, amqp091.ErrClosed) {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %v", ErrSubscription, err)
	}

	select {
	case <-state.done:
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrSubscription, ctx.Err())
	}
	c.logger.Info("unsubscribed from channel", zap.String("subscription_id", sub.ID))
	return nil
}

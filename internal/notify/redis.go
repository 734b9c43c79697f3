package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

const (
	payloadField   = "payload"
	streamMaxLen   = 10000
	readBatchCount = 50
)

// RedisPublisher appends events to a Redis stream named after the channel.
type RedisPublisher struct {
	client   *redis.Client
	producer string
	logger   *zap.Logger
}

// NewRedisPublisher builds a publisher on an existing client.
func NewRedisPublisher(client *redis.Client, producer string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, producer: producer, logger: logger}
}

// Publish XADDs the encoded envelope, trimming the stream to roughly streamMaxLen entries.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, event domain.MessageCreated) error {
	body, err := Encode(event, p.producer)
	if err != nil {
		return err
	}
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: channel,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{payloadField: string(body)},
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", channel, err)
	}
	p.logger.Debug("published event",
		zap.String("channel", channel),
		zap.String("stream_id", id),
		zap.String("ticket_id", event.TicketID))
	return nil
}

// Close is a no-op; the client is owned by persistence.Redis.
func (p *RedisPublisher) Close() error {
	return nil
}

type redisSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// RedisChannel consumes events from Redis streams with blocking XREAD.
type RedisChannel struct {
	client       *redis.Client
	blockTimeout time.Duration
	logger       *zap.Logger

	mu   sync.Mutex
	subs map[string]*redisSubscription
}

// NewRedisChannel builds a channel on an existing client.
func NewRedisChannel(client *redis.Client, blockTimeout time.Duration, logger *zap.Logger) *RedisChannel {
	if blockTimeout <= 0 {
		blockTimeout = 2 * time.Second
	}
	return &RedisChannel{
		client:       client,
		blockTimeout: blockTimeout,
		logger:       logger,
		subs:         make(map[string]*redisSubscription),
	}
}

// Subscribe resolves the starting stream id for replay and starts a reader goroutine.
func (c *RedisChannel) Subscribe(ctx context.Context, channel string, replay ReplayPolicy, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("%w: nil handler", ErrSubscription)
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscription, err)
	}

	startID := "0-0"
	if replay != ReplayAll {
		last, err := c.client.XRevRangeN(ctx, channel, "+", "-", 1).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %v", ErrSubscription, err)
		}
		if len(last) > 0 {
			startID = last[0].ID
		}
	}

	readCtx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{ID: uuid.NewString(), Channel: channel}
	state := &redisSubscription{cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.subs[sub.ID] = state
	c.mu.Unlock()

	go c.readLoop(readCtx, state.done, channel, startID, handler)

	c.logger.Info("subscribed to channel",
		zap.String("channel", channel),
		zap.String("subscription_id", sub.ID),
		zap.String("start_id", startID))
	return sub, nil
}

// Unsubscribe stops the reader and waits for it to exit or for ctx to expire.
func (c *RedisChannel) Unsubscribe(ctx context.Context, sub *Subscription) error {
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

	state.cancel()
	select {
	case <-state.done:
		c.logger.Info("unsubscribed from channel", zap.String("subscription_id", sub.ID))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrSubscription, ctx.Err())
	}
}

func (c *RedisChannel) readLoop(ctx context.Context, done chan<- struct{}, channel, lastID string, handler Handler) {
	defer close(done)
	for {
		if ctx.Err() != nil {
			return
		}
		streams, err := c.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{channel, lastID},
			Count:   readBatchCount,
			Block:   c.blockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("stream read failed", zap.String("channel", channel), zap.Error(err))
			if !sleepCtx(ctx, c.blockTimeout) {
				return
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				lastID = msg.ID
				raw, ok := msg.Values[payloadField].(string)
				if !ok {
					c.logger.Warn("stream entry without payload", zap.String("stream_id", msg.ID))
					continue
				}
				event, err := Decode([]byte(raw))
				if err != nil {
					c.logger.Warn("dropping undecodable event", zap.String("stream_id", msg.ID), zap.Error(err))
					continue
				}
				handler(ctx, event)
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

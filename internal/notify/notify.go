// Package notify carries "message created" events between the directory API
// and chat sessions over Redis Streams or a RabbitMQ topic exchange.
package notify

import (
	"context"
	"errors"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

// ErrSubscription is wrapped by every connect or disconnect failure.
var ErrSubscription = errors.New("notification subscription failed")

// ReplayPolicy selects which already-published events a new subscription sees.
type ReplayPolicy int64

const (
	// ReplayNew delivers only events published after Subscribe returns.
	ReplayNew ReplayPolicy = -1
	// ReplayAll delivers every event the transport still retains.
	ReplayAll ReplayPolicy = -2
)

// Handler receives decoded events. It is called from the transport's goroutine.
type Handler func(ctx context.Context, event domain.MessageCreated)

// Subscription is the opaque handle returned by Subscribe.
type Subscription struct {
	ID      string
	Channel string
}

//go:generate go run go.uber.org/mock/mockgen -source=notify.go -destination=../mocks/mock_notify.go -package=mocks

// Channel is the consumer side of the push transport.
type Channel interface {
	Subscribe(ctx context.Context, channel string, replay ReplayPolicy, handler Handler) (*Subscription, error)
	// Unsubscribe is a no-op for unknown or already closed handles.
	Unsubscribe(ctx context.Context, sub *Subscription) error
}

// Publisher is the producer side of the push transport.
type Publisher interface {
	Publish(ctx context.Context, channel string, event domain.MessageCreated) error
	Close() error
}

package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/domain"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.MessageCreated
}

func (r *recorder) handle(_ context.Context, ev domain.MessageCreated) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) tickets() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.TicketID)
	}
	return out
}

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, s
}

func TestRedisChannel_DeliversNewEvents(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	client, _ := setupRedis(t)
	logger := zap.NewNop()

	pub := NewRedisPublisher(client, "test", logger)
	req.NoError(pub.Publish(ctx, "events", domain.MessageCreated{TicketID: "old", MessageID: "m0"}))

	ch := NewRedisChannel(client, 50*time.Millisecond, logger)
	rec := &recorder{}
	sub, err := ch.Subscribe(ctx, "events", ReplayNew, rec.handle)
	req.NoError(err)

	req.NoError(pub.Publish(ctx, "events", domain.MessageCreated{TicketID: "t1", MessageID: "m1", Preview: "hi"}))

	req.Eventually(func() bool {
		return len(rec.tickets()) == 1
	}, 2*time.Second, 20*time.Millisecond)
	req.Equal([]string{"t1"}, rec.tickets())

	req.NoError(ch.Unsubscribe(ctx, sub))
	req.NoError(pub.Publish(ctx, "events", domain.MessageCreated{TicketID: "t2", MessageID: "m2"}))
	time.Sleep(150 * time.Millisecond)
	req.Equal([]string{"t1"}, rec.tickets())
}

func TestRedisChannel_ReplayAll(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	client, _ := setupRedis(t)
	logger := zap.NewNop()

	pub := NewRedisPublisher(client, "test", logger)
	req.NoError(pub.Publish(ctx, "events", domain.MessageCreated{TicketID: "a"}))
	req.NoError(pub.Publish(ctx, "events", domain.MessageCreated{TicketID: "b"}))

	ch := NewRedisChannel(client, 50*time.Millisecond, logger)
	rec := &recorder{}
	sub, err := ch.Subscribe(ctx, "events", ReplayAll, rec.handle)
	req.NoError(err)
	defer ch.Unsubscribe(ctx, sub) //nolint:errcheck

	req.Eventually(func() bool {
		return len(rec.tickets()) == 2
	}, 2*time.Second, 20*time.Millisecond)
	req.Equal([]string{"a", "b"}, rec.tickets())
}

func TestRedisChannel_SubscribeUnreachable(t *testing.T) {
	client, s := setupRedis(t)
	s.Close()

	ch := NewRedisChannel(client, 50*time.Millisecond, zap.NewNop())
	_, err := ch.Subscribe(context.Background(), "events", ReplayNew, (&recorder{}).handle)
	require.ErrorIs(t, err, ErrSubscription)
}

func TestRedisChannel_UnsubscribeUnknownIsNoop(t *testing.T) {
	client, _ := setupRedis(t)
	ch := NewRedisChannel(client, 50*time.Millisecond, zap.NewNop())

	require.NoError(t, ch.Unsubscribe(context.Background(), nil))
	require.NoError(t, ch.Unsubscribe(context.Background(), &Subscription{ID: "missing"}))
}

package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel carries revoked session ids between replicas.
const DefaultChannel = "mediconnect:sessions:revoked"

// Notifier broadcasts session revocations.
type Notifier interface {
	Publish(ctx context.Context, sessionID string) error
	// Subscribe returns a channel of revoked session ids; it is closed
	// when ctx is done.
	Subscribe(ctx context.Context) (<-chan string, error)
}

// RedisNotifier uses a single Redis pub/sub channel.
type RedisNotifier struct {
	redis   *redis.Client
	channel string
}

// NewRedisNotifier creates a notifier on channel (DefaultChannel when empty).
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	if client == nil {
		panic("session: redis client required")
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{redis: client, channel: channel}
}

func (n *RedisNotifier) Publish(ctx context.Context, sessionID string) error {
	if err := n.redis.Publish(ctx, n.channel, sessionID).Err(); err != nil {
		return fmt.Errorf("session: publish revoke: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(ctx context.Context) (<-chan string, error) {
	pubsub := n.redis.Subscribe(ctx, n.channel)
	// Wait for the subscription confirmation so no publish is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("session: subscribe: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer pubsub.Close()
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// MemoryNotifier fans revocations out in process.
type MemoryNotifier struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewMemoryNotifier creates an in-process notifier.
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[chan string]struct{})}
}

func (n *MemoryNotifier) Publish(ctx context.Context, sessionID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	for ch := range n.subs {
		// Slow subscribers miss the message; the revoking replica has
		// already evicted locally.
		select {
		case ch <- sessionID:
		default:
		}
	}
	return nil
}

func (n *MemoryNotifier) Subscribe(ctx context.Context) (<-chan string, error) {
	ch := make(chan string, 16)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs, ch)
		n.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

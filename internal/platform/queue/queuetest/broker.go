// Package queuetest provides an in-memory queue.Broker for tests.
package queuetest

import (
	"context"
	"sync"
	"time"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/queue"
)

// Broker keeps lists in memory. TTLs are recorded but never enforced.
type Broker struct {
	mu     sync.Mutex
	lists  map[string][][]byte
	ttls   map[string]time.Duration
	notify chan struct{}
}

var _ queue.Broker = (*Broker)(nil)

func New() *Broker {
	return &Broker{
		lists:  map[string][][]byte{},
		ttls:   map[string]time.Duration{},
		notify: make(chan struct{}),
	}
}

func (b *Broker) Push(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists[key] = append(b.lists[key], append([]byte(nil), payload...))
	if ttl > 0 {
		b.ttls[key] = ttl
	}
	close(b.notify)
	b.notify = make(chan struct{})
	return nil
}

func (b *Broker) Pop(ctx context.Context, timeout time.Duration, keys ...string) (string, []byte, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		b.mu.Lock()
		for _, k := range keys {
			if items := b.lists[k]; len(items) > 0 {
				b.lists[k] = items[1:]
				b.mu.Unlock()
				return k, items[0], nil
			}
		}
		wait := b.notify
		b.mu.Unlock()

		select {
		case <-wait:
		case <-deadline:
			return "", nil, queue.ErrEmpty
		case <-ctx.Done():
			return "", nil, ctx.Err()
		}
	}
}

// Len reports how many messages wait on key.
func (b *Broker) Len(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lists[key])
}

// TTL returns the expiry last requested for key.
func (b *Broker) TTL(key string) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ttls[key]
}

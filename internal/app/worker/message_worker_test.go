package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/queue"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/queue/queuetest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// start runs w on queues until the test ends.
func start(t *testing.T, w *MessageWorker, queues ...string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, queues...) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("worker did not stop")
		}
	})
}

func newWorker(b queue.Broker, concurrency int) *MessageWorker {
	return NewMessageWorker(b, Options{
		Concurrency:    concurrency,
		HandlerTimeout: time.Second,
		PollTimeout:    20 * time.Millisecond,
	})
}

func TestMessageWorker_RepliesWithHandlerResult(t *testing.T) {
	b := queuetest.New()
	w := newWorker(b, 2)
	w.Handle("echo", func(_ context.Context, data json.RawMessage) (any, error) {
		var in map[string]string
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, err
		}
		return map[string]string{"echo": in["say"]}, nil
	})
	start(t, w, "users_queue")

	client := queue.NewClient(b, "users_queue", time.Second)
	var out map[string]string
	require.NoError(t, client.Call(context.Background(), "echo", map[string]string{"say": "hi"}, &out))
	assert.Equal(t, "hi", out["echo"])
}

func TestMessageWorker_ErrorsKeepTheirKind(t *testing.T) {
	b := queuetest.New()
	w := newWorker(b, 1)
	w.Handle("missing", func(context.Context, json.RawMessage) (any, error) {
		return nil, common.NotFound("User not found")
	})
	w.Handle("boom", func(context.Context, json.RawMessage) (any, error) {
		panic("kaboom")
	})
	start(t, w, "users_queue")
	client := queue.NewClient(b, "users_queue", time.Second)
	ctx := context.Background()

	err := client.Call(ctx, "missing", nil, nil)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
	assert.Equal(t, "User not found", common.PublicMessage(err))

	err = client.Call(ctx, "boom", nil, nil)
	assert.Equal(t, common.KindUnexpected, common.KindOf(err))
	assert.Equal(t, "Internal server error", common.PublicMessage(err))

	err = client.Call(ctx, "nobody_home", nil, nil)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestMessageWorker_ServesSeveralQueues(t *testing.T) {
	b := queuetest.New()
	w := newWorker(b, 2)
	w.Handle("ping", func(context.Context, json.RawMessage) (any, error) { return "pong", nil })
	start(t, w, "users_queue", "posts_queue")

	for _, q := range []string{"users_queue", "posts_queue"} {
		var out string
		require.NoError(t, queue.NewClient(b, q, time.Second).Call(context.Background(), "ping", nil, &out))
		assert.Equal(t, "pong", out)
	}
}

func TestMessageWorker_DropsMalformedAndFireAndForget(t *testing.T) {
	b := queuetest.New()
	w := newWorker(b, 1)
	var calls atomic.Int32
	w.Handle("note", func(context.Context, json.RawMessage) (any, error) {
		calls.Add(1)
		return nil, nil
	})
	start(t, w, "q")

	ctx := context.Background()
	require.NoError(t, b.Push(ctx, "q", []byte("not json"), 0))
	event, err := json.Marshal(queue.Request{ID: "e-1", Pattern: "note", Data: json.RawMessage(`{}`)})
	require.NoError(t, err)
	require.NoError(t, b.Push(ctx, "q", event, 0))

	assert.Eventually(t, func() bool { return calls.Load() == 1 && b.Len("q") == 0 }, time.Second, 10*time.Millisecond)
}

func TestMessageWorker_BoundsConcurrency(t *testing.T) {
	b := queuetest.New()
	w := newWorker(b, 2)
	var running, peak atomic.Int32
	w.Handle("slow", func(context.Context, json.RawMessage) (any, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		running.Add(-1)
		return nil, nil
	})
	start(t, w, "q")

	client := queue.NewClient(b, "q", 2*time.Second)
	errs := make(chan error, 6)
	for range 6 {
		go func() { errs <- client.Call(context.Background(), "slow", nil, nil) }()
	}
	for range 6 {
		require.NoError(t, <-errs)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestMessageWorker_ReplyListExpires(t *testing.T) {
	b := queuetest.New()
	w := newWorker(b, 1)
	w.Handle("ping", func(context.Context, json.RawMessage) (any, error) { return "pong", nil })
	start(t, w, "q")

	req, err := json.Marshal(queue.Request{ID: "r-1", Pattern: "ping", ReplyTo: queue.ReplyKey("q", "r-1")})
	require.NoError(t, err)
	require.NoError(t, b.Push(context.Background(), "q", req, 0))

	assert.Eventually(t, func() bool { return b.Len(queue.ReplyKey("q", "r-1")) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, time.Second, b.TTL(queue.ReplyKey("q", "r-1")))
}

func TestMessageWorker_RunNeedsQueues(t *testing.T) {
	w := newWorker(queuetest.New(), 1)
	assert.Error(t, w.Run(context.Background()))
}

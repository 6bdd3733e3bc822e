package queue_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/queue"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/queue/queuetest"
)

// respond answers the next request on q with the reply built by fn.
func respond(t *testing.T, b *queuetest.Broker, q string, fn func(req queue.Request) queue.Reply) <-chan queue.Request {
	t.Helper()
	seen := make(chan queue.Request, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, raw, err := b.Pop(ctx, 0, q)
		if err != nil {
			close(seen)
			return
		}
		var req queue.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			close(seen)
			return
		}
		seen <- req
		reply, _ := json.Marshal(fn(req))
		_ = b.Push(ctx, req.ReplyTo, reply, time.Second)
	}()
	return seen
}

func TestClient_CallSuccess(t *testing.T) {
	b := queuetest.New()
	client := queue.NewClient(b, "posts_queue", time.Second)

	seen := respond(t, b, "posts_queue", func(req queue.Request) queue.Reply {
		return queue.Reply{ID: req.ID, Success: true, Data: json.RawMessage(`{"title":"Hello there"}`)}
	})

	var out struct {
		Title string `json:"title"`
	}
	err := client.Call(context.Background(), "get_post", map[string]string{"id": "p-1"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", out.Title)

	req := <-seen
	assert.Equal(t, "get_post", req.Pattern)
	assert.Len(t, req.ID, 26)
	assert.Equal(t, queue.ReplyKey("posts_queue", req.ID), req.ReplyTo)
	assert.JSONEq(t, `{"id":"p-1"}`, string(req.Data))
	assert.WithinDuration(t, time.Now(), req.SentAt, 5*time.Second)
}

func TestClient_CallRemoteErrorKeepsKind(t *testing.T) {
	b := queuetest.New()
	client := queue.NewClient(b, "users_queue", time.Second)

	respond(t, b, "users_queue", func(req queue.Request) queue.Reply {
		return queue.Reply{ID: req.ID, Error: common.ToWire(
			common.InvalidInput("Validation failed", common.FieldErrors{"email": "email is required"}))}
	})

	err := client.Call(context.Background(), "create_user", map[string]string{}, nil)
	require.Error(t, err)
	assert.Equal(t, common.KindInvalidInput, common.KindOf(err))
	assert.Equal(t, common.FieldErrors{"email": "email is required"}, common.FieldsOf(err))
}

func TestClient_CallTimeout(t *testing.T) {
	b := queuetest.New()
	client := queue.NewClient(b, "users_queue", 50*time.Millisecond)

	err := client.Call(context.Background(), "get_user", map[string]string{"id": "x"}, nil)
	require.Error(t, err)
	assert.Equal(t, common.KindUnavailable, common.KindOf(err))
	assert.Equal(t, 1, b.Len("users_queue"), "request stays queued for a late worker")
}

func TestClient_CallCanceledByCaller(t *testing.T) {
	b := queuetest.New()
	client := queue.NewClient(b, "users_queue", 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	stop := time.AfterFunc(20*time.Millisecond, cancel)
	defer stop.Stop()

	err := client.Call(ctx, "get_user", map[string]string{"id": "x"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, common.KindUnavailable, common.KindOf(err))
	assert.Equal(t, http.StatusServiceUnavailable, common.HTTPStatusFromError(err))
}

func TestClient_CallRejectsForeignReply(t *testing.T) {
	b := queuetest.New()
	client := queue.NewClient(b, "users_queue", time.Second)

	respond(t, b, "users_queue", func(req queue.Request) queue.Reply {
		return queue.Reply{ID: "someone-else", Success: true}
	})

	err := client.Call(context.Background(), "get_user", nil, nil)
	assert.Equal(t, common.KindUnexpected, common.KindOf(err))
}

func TestBroker_PopWaitsForPush(t *testing.T) {
	b := queuetest.New()
	ctx := context.Background()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = b.Push(ctx, "b", []byte("second"), 0)
	}()
	key, payload, err := b.Pop(ctx, time.Second, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "b", key)
	assert.Equal(t, "second", string(payload))

	_, _, err = b.Pop(ctx, 10*time.Millisecond, "a")
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

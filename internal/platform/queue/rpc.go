package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
)

// Request is a command sent to a worker. Replies go to the ReplyTo list.
type Request struct {
	ID      string          `json:"id"`
	Pattern string          `json:"pattern"`
	ReplyTo string          `json:"replyTo,omitempty"`
	Data    json.RawMessage `json:"data"`
	SentAt  time.Time       `json:"sentAt"`
}

// Reply answers a Request with either Data or Error.
type Reply struct {
	ID      string            `json:"id"`
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Error   *common.WireError `json:"error,omitempty"`
}

// ReplyKey names the list a caller listens on for the reply to request id.
func ReplyKey(queue, id string) string {
	return queue + ":reply:" + id
}

// Client sends requests to one queue and waits for their replies.
type Client struct {
	broker  Broker
	queue   string
	timeout time.Duration
	now     func() time.Time
}

func NewClient(broker Broker, queue string, timeout time.Duration) *Client {
	return &Client{broker: broker, queue: queue, timeout: timeout, now: time.Now}
}

// Call sends data under pattern and decodes a successful reply into out (which
// may be nil). Remote failures come back with the same error kind; no reply
// within the client timeout is UNAVAILABLE.
func (c *Client) Call(ctx context.Context, pattern string, data any, out any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return common.Unexpected(err, "rpc encode "+pattern)
	}
	id := ulid.Make().String()
	req := Request{
		ID:      id,
		Pattern: pattern,
		ReplyTo: ReplyKey(c.queue, id),
		Data:    payload,
		SentAt:  c.now().UTC(),
	}
	encoded, err := json.Marshal(req)
	if err != nil {
		return common.Unexpected(err, "rpc encode "+pattern)
	}

	backoff := retry.WithMaxRetries(2, retry.NewConstant(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.broker.Push(ctx, c.queue, encoded, 0); err != nil {
			if common.IsKind(err, common.KindUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return abandoned(err, pattern)
	}

	_, raw, err := c.broker.Pop(ctx, c.timeout, req.ReplyTo)
	if err != nil {
		if errors.Is(err, ErrEmpty) || errors.Is(err, context.DeadlineExceeded) {
			return oops.Code(string(common.KindUnavailable)).
				Public("Service did not respond in time").
				With("pattern", pattern).
				With("request_id", id).
				Errorf("no reply to %s within %s", pattern, c.timeout)
		}
		return abandoned(err, pattern)
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return common.Unexpected(err, "rpc decode "+pattern)
	}
	if reply.ID != id {
		return common.Unexpected(oops.Errorf("reply id %q does not match request %q", reply.ID, id), "rpc "+pattern)
	}
	if !reply.Success {
		if reply.Error == nil {
			return common.Unexpected(oops.Errorf("failed reply without error"), "rpc "+pattern)
		}
		return reply.Error.Err()
	}
	if out == nil || len(reply.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(reply.Data, out); err != nil {
		return common.Unexpected(err, "rpc decode "+pattern)
	}
	return nil
}

// abandoned reports a call the caller gave up on as UNAVAILABLE.
func abandoned(err error, pattern string) error {
	if _, coded := oops.AsOops(err); !coded && errors.Is(err, context.Canceled) {
		return common.Unavailable(err, "rpc "+pattern)
	}
	return err
}

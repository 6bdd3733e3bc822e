package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/common"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/metrics"
	"github.com/AymanNagyAhmed/ekfc-users-ms/internal/platform/queue"
)

// HandlerFunc serves one message pattern. The returned value becomes the reply data.
type HandlerFunc func(ctx context.Context, data json.RawMessage) (any, error)

type Options struct {
	// Concurrency caps the handlers running at once.
	Concurrency int
	// HandlerTimeout bounds each handler and is also the lifetime of its reply list.
	HandlerTimeout time.Duration
	// PollTimeout is how long one pop blocks before the loop re-checks for shutdown.
	PollTimeout time.Duration
	Logger      *slog.Logger
	Metrics     metrics.Recorder
}

// MessageWorker pops requests from queues and answers them with registered handlers.
type MessageWorker struct {
	broker   queue.Broker
	opts     Options
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewMessageWorker(broker queue.Broker, opts Options) *MessageWorker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.HandlerTimeout <= 0 {
		opts.HandlerTimeout = 10 * time.Second
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	return &MessageWorker{broker: broker, opts: opts, handlers: map[string]HandlerFunc{}}
}

// Handle registers h for pattern, replacing any earlier handler.
func (w *MessageWorker) Handle(pattern string, h HandlerFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[pattern] = h
}

func (w *MessageWorker) handler(pattern string) (HandlerFunc, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.handlers[pattern]
	return h, ok
}

// Run serves queues until ctx is cancelled, then waits for in-flight handlers.
func (w *MessageWorker) Run(ctx context.Context, queues ...string) error {
	if len(queues) == 0 {
		return oops.Errorf("worker needs at least one queue")
	}
	w.opts.Logger.InfoContext(ctx, "message worker started", "queues", queues, "concurrency", w.opts.Concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)

	for gctx.Err() == nil {
		_, payload, err := w.broker.Pop(gctx, w.opts.PollTimeout, queues...)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) || gctx.Err() != nil {
				continue
			}
			w.opts.Logger.ErrorContext(ctx, "failed to pop message", "error", err)
			select {
			case <-gctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		// Blocks while Concurrency handlers are busy.
		g.Go(func() error {
			w.process(gctx, payload)
			return nil
		})
	}

	err := g.Wait()
	w.opts.Logger.InfoContext(ctx, "message worker stopped")
	return err
}

func (w *MessageWorker) process(ctx context.Context, payload []byte) {
	start := time.Now()
	var req queue.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		w.opts.Logger.WarnContext(ctx, "dropping malformed message", "error", err)
		w.opts.Metrics.ObserveMessage("unknown", "malformed", time.Since(start))
		return
	}
	logger := w.opts.Logger.With("pattern", req.Pattern, "request_id", req.ID)

	data, err := w.dispatch(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = string(common.KindOf(err))
		if common.KindOf(err) == common.KindUnexpected {
			common.LogError(ctx, logger, "message handler failed", err)
		} else {
			logger.DebugContext(ctx, "message rejected", "kind", outcome, "error", err)
		}
	}
	w.opts.Metrics.ObserveMessage(req.Pattern, outcome, time.Since(start))

	if req.ReplyTo == "" {
		return
	}
	reply := queue.Reply{ID: req.ID, Success: err == nil}
	if err != nil {
		reply.Error = common.ToWire(err)
	} else if data != nil {
		encoded, mErr := json.Marshal(data)
		if mErr != nil {
			reply = queue.Reply{ID: req.ID, Error: common.ToWire(common.Unexpected(mErr, "encode reply"))}
		} else {
			reply.Data = encoded
		}
	}
	encoded, mErr := json.Marshal(reply)
	if mErr != nil {
		common.LogError(ctx, logger, "failed to encode reply", mErr)
		return
	}
	// The reply must be delivered even while shutting down.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := w.broker.Push(pushCtx, req.ReplyTo, encoded, w.opts.HandlerTimeout); err != nil {
		common.LogError(ctx, logger, "failed to send reply", err)
	}
}

// dispatch runs the handler for req under the handler timeout, turning panics
// into UNEXPECTED errors.
func (w *MessageWorker) dispatch(ctx context.Context, req queue.Request) (data any, err error) {
	h, ok := w.handler(req.Pattern)
	if !ok {
		return nil, common.NotFound(fmt.Sprintf("No handler for pattern %q", req.Pattern))
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.opts.HandlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = common.Unexpected(oops.Errorf("panic: %v", r), "handle "+req.Pattern)
		}
	}()
	return h(ctx, req.Data)
}

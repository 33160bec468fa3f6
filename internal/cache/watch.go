package cache

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/fragwatch/internal/ir"
)

// watch is one registered callback.
//
// deliverMu is held for the whole of a delivery (diff plus callback), so
// deliveries for one watch never overlap and the immediate delivery always
// runs before any broadcast delivery.
type watch struct {
	id        int64
	opts      ir.DiffOptions
	callback  func(ir.Diff)
	cancelled atomic.Bool

	deliverMu sync.Mutex
	deps      map[string]struct{}
}

// Watch registers callback for changes to the records opts reads.
//
// With opts.Immediate the current diff is delivered synchronously before
// Watch returns. Afterwards a fresh diff is delivered each time a broadcast
// touches a record the previous diff read. The returned cancel function is
// idempotent; once it returns no further callback starts.
func (c *Cache) Watch(opts ir.WatchOptions, callback func(ir.Diff)) (func(), error) {
	if opts.Fragment == nil {
		return nil, fmt.Errorf("watch %q: fragment is required", opts.ID)
	}
	if callback == nil {
		return nil, fmt.Errorf("watch %q: callback is required", opts.ID)
	}

	w := &watch{opts: opts.DiffOptions, callback: callback}

	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()

	c.mu.Lock()
	c.nextWatchID++
	w.id = c.nextWatchID
	c.watches = append(c.watches, w)
	c.mu.Unlock()

	cancel := func() { c.cancelWatch(w) }

	d, deps, err := c.diff(context.Background(), w.opts)
	if err != nil {
		c.cancelWatch(w)
		return nil, fmt.Errorf("watch %q: %w", opts.ID, err)
	}
	w.deps = deps

	c.logger.Debug("watch registered", "watch", w.id, "id", opts.ID, "immediate", opts.Immediate)

	if opts.Immediate {
		w.callback(d)
	}
	return cancel, nil
}

func (c *Cache) cancelWatch(w *watch) {
	if w.cancelled.Swap(true) {
		return
	}
	c.mu.Lock()
	c.watches = slices.DeleteFunc(c.watches, func(o *watch) bool { return o == w })
	c.mu.Unlock()
	c.logger.Debug("watch cancelled", "watch", w.id)
}

// Watches returns the number of registered watches.
func (c *Cache) Watches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.watches)
}

// Run starts the single-writer broadcast loop.
// Blocks until ctx is cancelled, Close is called and the queue drains, or
// a broadcast fails.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (c *Cache) Run(ctx context.Context) error {
	c.logger.Info("broadcast loop starting")

	for {
		event, ok := c.queue.TryDequeue()
		if ok {
			if err := c.broadcast(ctx, event); err != nil {
				c.logger.Error("broadcast failed",
					"seq", event.Seq,
					"reason", event.Reason,
					"error", err,
				)
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			c.logger.Info("broadcast loop stopping: context cancelled")
			return ctx.Err()

		case <-c.queue.Wait():
			// The signal channel closes with the queue.
			if c.queue.Closed() && c.queue.Len() == 0 {
				c.logger.Info("broadcast loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Drain broadcasts every queued event and returns when the queue is empty.
// Events enqueued by callbacks during the drain are processed too.
func (c *Cache) Drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		event, ok := c.queue.TryDequeue()
		if !ok {
			return nil
		}
		if err := c.broadcast(ctx, event); err != nil {
			return err
		}
	}
}

// broadcast delivers a fresh diff to every watch whose dependencies
// intersect the event, in registration order.
func (c *Cache) broadcast(ctx context.Context, event Event) error {
	c.mu.Lock()
	watches := slices.Clone(c.watches)
	c.mu.Unlock()

	delivered := 0
	for _, w := range watches {
		ok, err := c.deliver(ctx, w, event)
		if err != nil {
			return err
		}
		if ok {
			delivered++
		}
	}

	c.logger.Debug("broadcast",
		"seq", event.Seq,
		"reason", event.Reason,
		"ids", event.IDs,
		"delivered", delivered,
	)
	c.recorder.BroadcastProcessed(event.Reason, delivered)
	return nil
}

func (c *Cache) deliver(ctx context.Context, w *watch, event Event) (bool, error) {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()

	if w.cancelled.Load() || !w.dependsOn(event.IDs) {
		return false, nil
	}

	d, deps, err := c.diff(ctx, w.opts)
	if err != nil {
		return false, &BroadcastError{Seq: event.Seq, WatchID: w.id, RecordID: w.opts.ID, Err: err}
	}
	w.deps = deps

	// Cancelled while diffing.
	if w.cancelled.Load() {
		return false, nil
	}
	w.callback(d)
	return true, nil
}

// dependsOn reports whether the watch's last diff read any of ids.
// Caller holds deliverMu.
func (w *watch) dependsOn(ids []string) bool {
	for _, id := range ids {
		if _, ok := w.deps[id]; ok {
			return true
		}
	}
	return false
}

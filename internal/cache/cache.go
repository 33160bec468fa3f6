package cache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/fragwatch/internal/ir"
	"github.com/roach88/fragwatch/internal/store"
)

// DefaultKeyFields are the fields that identify an object when no
// WithKeyFields override is registered for its typename.
var DefaultKeyFields = []string{"id"}

// Recorder receives broadcast statistics. Implemented by metrics.Recorder.
type Recorder interface {
	// BroadcastProcessed is called once per event with the number of
	// watches that received a diff.
	BroadcastProcessed(reason EventReason, delivered int)
}

type nopRecorder struct{}

func (nopRecorder) BroadcastProcessed(EventReason, int) {}

// Cache is the normalized record store watched by fragment subscriptions.
//
// Thread-safety model:
//   - Write, Evict, RecordOptimistic, RemoveOptimistic, Diff, Watch and
//     Identify: safe from any goroutine
//   - Run or Drain: one goroutine at a time
type Cache struct {
	store     *store.Store
	clock     *Clock
	queue     *eventQueue
	logger    *slog.Logger
	recorder  Recorder
	keyFields map[string][]string

	writeMu sync.Mutex // serializes read-merge-write of records

	mu          sync.Mutex // guards layers, watches, nextWatchID
	layers      []optimisticLayer
	watches     []*watch
	nextWatchID int64
}

// optimisticLayer holds speculative record fields applied on top of the
// stored records for optimistic reads. Layers apply in creation order.
type optimisticLayer struct {
	id      string
	records []ir.Record
}

// Option configures a Cache.
type Option func(*Cache)

// WithKeyFields sets the fields that identify objects of typename.
// Several fields form a compound key.
func WithKeyFields(typename string, fields ...string) Option {
	return func(c *Cache) {
		c.keyFields[typename] = slices.Clone(fields)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithRecorder sets the broadcast recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Cache) {
		c.recorder = r
	}
}

// New creates a Cache over s. The logical clock resumes after the highest
// seq already stored.
func New(ctx context.Context, s *store.Store, opts ...Option) (*Cache, error) {
	maxSeq, err := s.MaxSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("new cache: %w", err)
	}

	c := &Cache{
		store:     s,
		clock:     NewClockAt(maxSeq),
		queue:     newEventQueue(),
		logger:    slog.Default(),
		recorder:  nopRecorder{},
		keyFields: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Clock returns the cache's logical clock.
func (c *Cache) Clock() *Clock {
	return c.clock
}

// Pending returns the number of events waiting to be broadcast.
func (c *Cache) Pending() int {
	return c.queue.Len()
}

// Close stops accepting writes and makes Run return once the queue is empty.
func (c *Cache) Close() {
	c.queue.Close()
}

// Write merges records into the store and schedules a broadcast.
//
// Fields of an existing record are replaced key by key; fields not named
// in the write are kept. A record without an ID is identified from its
// fields. A record without a typename keeps the stored one.
func (c *Cache) Write(ctx context.Context, records ...ir.Record) error {
	if len(records) == 0 {
		return nil
	}
	if c.queue.Closed() {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	merged := make([]ir.Record, 0, len(records))
	ids := make([]string, 0, len(records))
	for _, in := range records {
		rec, err := c.normalize(in)
		if err != nil {
			return fmt.Errorf("write: %w", err)
		}

		existing, ok, err := c.store.ReadRecord(ctx, rec.ID)
		if err != nil {
			return fmt.Errorf("write %q: %w", rec.ID, err)
		}
		if ok {
			rec = mergeRecord(existing, rec)
		}
		if rec.Typename == "" {
			return fmt.Errorf("write %q: typename is required", rec.ID)
		}

		rec.Seq = c.clock.Next()
		merged = append(merged, rec)
		ids = append(ids, rec.ID)
	}

	if err := c.store.PutRecords(ctx, merged); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	c.logger.Debug("records written", "ids", ids, "seq", c.clock.Current())
	return c.enqueue(ReasonWrite, ids)
}

// Evict removes a record and schedules a broadcast. Evicting an id that
// is not stored is not an error and schedules nothing.
func (c *Cache) Evict(ctx context.Context, id string) (bool, error) {
	if c.queue.Closed() {
		return false, ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deleted, err := c.store.DeleteRecord(ctx, id)
	if err != nil {
		return false, fmt.Errorf("evict: %w", err)
	}
	if !deleted {
		return false, nil
	}

	c.clock.Next()
	c.logger.Debug("record evicted", "id", id, "seq", c.clock.Current())
	return true, c.enqueue(ReasonEvict, []string{id})
}

// RecordOptimistic adds a layer of speculative writes identified by
// layerID. A layer with the same id is replaced.
func (c *Cache) RecordOptimistic(layerID string, records ...ir.Record) error {
	if c.queue.Closed() {
		return ErrClosed
	}

	layer := optimisticLayer{id: layerID, records: make([]ir.Record, 0, len(records))}
	ids := make([]string, 0, len(records))
	for _, in := range records {
		rec, err := c.normalize(in)
		if err != nil {
			return fmt.Errorf("record optimistic %q: %w", layerID, err)
		}
		rec.Fields = rec.Fields.Clone()
		layer.records = append(layer.records, rec)
		ids = append(ids, rec.ID)
	}

	c.mu.Lock()
	if i := c.layerIndex(layerID); i >= 0 {
		ids = append(ids, layerIDs(c.layers[i])...)
		c.layers = slices.Delete(c.layers, i, i+1)
	}
	c.layers = append(c.layers, layer)
	c.mu.Unlock()

	c.clock.Next()
	c.logger.Debug("optimistic layer recorded", "layer", layerID, "ids", ids)
	return c.enqueue(ReasonOptimistic, ids)
}

// RemoveOptimistic drops the layer identified by layerID. Returns false
// when no such layer exists.
func (c *Cache) RemoveOptimistic(layerID string) (bool, error) {
	if c.queue.Closed() {
		return false, ErrClosed
	}

	c.mu.Lock()
	i := c.layerIndex(layerID)
	if i < 0 {
		c.mu.Unlock()
		return false, nil
	}
	ids := layerIDs(c.layers[i])
	c.layers = slices.Delete(c.layers, i, i+1)
	c.mu.Unlock()

	c.clock.Next()
	c.logger.Debug("optimistic layer removed", "layer", layerID, "ids", ids)
	return true, c.enqueue(ReasonRemoveOptimistic, ids)
}

// layerIndex returns the position of layerID, or -1. Caller holds c.mu.
func (c *Cache) layerIndex(layerID string) int {
	return slices.IndexFunc(c.layers, func(l optimisticLayer) bool {
		return l.id == layerID
	})
}

func layerIDs(l optimisticLayer) []string {
	ids := make([]string, len(l.records))
	for i, rec := range l.records {
		ids[i] = rec.ID
	}
	return ids
}

func (c *Cache) enqueue(reason EventReason, ids []string) error {
	if !c.queue.Enqueue(Event{Seq: c.clock.Current(), Reason: reason, IDs: ids}) {
		return ErrClosed
	}
	return nil
}

// normalize fills in a missing ID from the record's identifying fields.
func (c *Cache) normalize(rec ir.Record) (ir.Record, error) {
	if rec.ID != "" {
		return rec, nil
	}
	fields := rec.Fields.Clone()
	if fields == nil {
		fields = ir.IRObject{}
	}
	if _, ok := fields[ir.TypenameKey]; !ok && rec.Typename != "" {
		fields[ir.TypenameKey] = ir.IRString(rec.Typename)
	}
	id, ok := c.Identify(fields)
	if !ok {
		return rec, fmt.Errorf("record has no id and cannot be identified from its fields")
	}
	rec.ID = id
	return rec, nil
}

// mergeRecord overlays next onto prev field by field.
func mergeRecord(prev, next ir.Record) ir.Record {
	out := ir.Record{
		ID:       prev.ID,
		Typename: prev.Typename,
		Fields:   prev.Fields.Clone(),
	}
	if next.Typename != "" {
		out.Typename = next.Typename
	}
	if out.Fields == nil {
		out.Fields = ir.IRObject{}
	}
	for k, v := range next.Fields {
		out.Fields[k] = ir.Clone(v)
	}
	return out
}

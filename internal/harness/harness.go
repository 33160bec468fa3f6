package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/fragwatch/internal/cache"
	"github.com/roach88/fragwatch/internal/compiler"
	"github.com/roach88/fragwatch/internal/config"
	"github.com/roach88/fragwatch/internal/fragment"
	"github.com/roach88/fragwatch/internal/ir"
	"github.com/roach88/fragwatch/internal/store"
	"github.com/roach88/fragwatch/internal/testutil"
)

// Harness is the scenario execution engine for one run.
type Harness struct {
	cache  *cache.Cache
	logger *slog.Logger
	result *Result

	// results indexes every Result the subscription produced.
	results map[*fragment.Result]int
	pending []*fragment.Result
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Open a fresh in-memory store and cache
// 2. Compile the fragment document
// 3. Write seed records
// 4. Subscribe and check watch.expect
// 5. Apply each step, drain, and check its expect clause
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	doc, err := compiler.CompileFile(scenario.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to compile document: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := append(config.KeyFields(scenario.KeyFields).CacheOptions(), cache.WithLogger(logger))
	c, err := cache.New(ctx, st, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	defer c.Close()

	h := &Harness{
		cache:   c,
		logger:  logger,
		result:  NewResult(),
		results: make(map[*fragment.Result]int),
	}

	if err := h.seed(ctx, scenario.Records); err != nil {
		return nil, fmt.Errorf("failed to seed records: %w", err)
	}

	sub, err := h.subscribe(ctx, doc, scenario.Watch)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Stop()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, sub); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}

	return h.result, nil
}

func (h *Harness) seed(ctx context.Context, specs []RecordSpec) error {
	if len(specs) == 0 {
		return nil
	}
	records, _, err := h.toRecords(specs)
	if err != nil {
		return err
	}
	if err := h.cache.Write(ctx, records...); err != nil {
		return err
	}
	return h.cache.Drain(ctx)
}

func (h *Harness) subscribe(ctx context.Context, doc *ir.Document, w WatchSpec) (*fragment.Subscription, error) {
	from, err := convertFrom(w.From)
	if err != nil {
		return nil, fmt.Errorf("watch.from: %w", err)
	}
	vars, err := ir.ObjectFromMap(w.Variables)
	if err != nil {
		return nil, fmt.Errorf("watch.variables: %w", err)
	}

	sub, initial, err := fragment.Subscribe(ctx, h.cache, fragment.Options{
		From:         from,
		Document:     doc,
		FragmentName: w.Fragment,
		Variables:    vars,
		Optimistic:   w.Optimistic,
		ReadOptions:  ir.ReadOptions{ReturnPartialData: w.ReturnPartialData},
	},
		fragment.WithListener(h.onResult),
		fragment.WithLogger(h.logger),
		fragment.WithIDGenerator(testutil.NewSequentialIDGenerator("scenario")),
	)
	if err != nil {
		return nil, err
	}

	h.result.AddStepTrace(ActionSubscribe, "", []string{sub.Request().ID}, h.cache.Clock().Current())
	h.addResult(EventInitial, initial)
	delivered := h.flush()

	h.checkExpect("watch", w.Expect, delivered, sub.Current())
	return sub, nil
}

// executeStep applies one mutation and drains the broadcast queue.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, sub *fragment.Subscription) error {
	action := step.Action()
	var (
		layer string
		ids   []string
	)

	switch action {
	case ActionWrite:
		records, recIDs, err := h.toRecords(step.Write)
		if err != nil {
			return err
		}
		ids = recIDs
		if err := h.cache.Write(ctx, records...); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	case ActionEvict:
		ids = []string{step.Evict}
		if _, err := h.cache.Evict(ctx, step.Evict); err != nil {
			return fmt.Errorf("evict: %w", err)
		}
	case ActionOptimistic:
		records, recIDs, err := h.toRecords(step.Optimistic.Records)
		if err != nil {
			return err
		}
		layer, ids = step.Optimistic.Layer, recIDs
		if err := h.cache.RecordOptimistic(layer, records...); err != nil {
			return fmt.Errorf("optimistic: %w", err)
		}
	case ActionRemoveOptimistic:
		layer = step.RemoveOptimistic
		if _, err := h.cache.RemoveOptimistic(layer); err != nil {
			return fmt.Errorf("remove optimistic: %w", err)
		}
	default:
		return fmt.Errorf("no action")
	}

	if err := h.cache.Drain(ctx); err != nil {
		return fmt.Errorf("drain: %w", err)
	}

	h.result.AddStepTrace(action, layer, ids, h.cache.Clock().Current())
	delivered := h.flush()

	h.logger.Info("step completed",
		"step", index,
		"action", action,
		"delivered", delivered,
	)

	h.checkExpect(fmt.Sprintf("steps[%d]", index), step.Expect, delivered, sub.Current())
	return nil
}

// onResult is the subscription listener. Results are buffered until the
// step that caused them has been traced.
func (h *Harness) onResult(r *fragment.Result) {
	h.pending = append(h.pending, r)
	h.result.Deliveries++
}

// flush traces buffered deliveries and returns how many there were.
func (h *Harness) flush() int {
	n := len(h.pending)
	for _, r := range h.pending {
		h.addResult(EventDelivery, r)
	}
	h.pending = nil
	return n
}

func (h *Harness) addResult(eventType string, r *fragment.Result) {
	index := len(h.results)
	h.results[r] = index
	h.result.AddResultTrace(eventType, index, r.Complete, r.Data, r.Missing,
		h.indexOf(r.PreviousResult), h.indexOf(r.LastCompleteResult))
}

// indexOf returns the trace index of r, or -1 for nil or unknown results.
func (h *Harness) indexOf(r *fragment.Result) int {
	if r == nil {
		return -1
	}
	if i, ok := h.results[r]; ok {
		return i
	}
	return -1
}

// toRecords converts YAML records, filling in ids the cache can derive.
func (h *Harness) toRecords(specs []RecordSpec) ([]ir.Record, []string, error) {
	records := make([]ir.Record, 0, len(specs))
	ids := make([]string, 0, len(specs))
	for i, spec := range specs {
		fields, err := ir.ObjectFromMap(spec.Fields)
		if err != nil {
			return nil, nil, fmt.Errorf("record %d: %w", i, err)
		}
		rec := ir.Record{ID: spec.ID, Typename: spec.Typename, Fields: fields}
		if rec.ID == "" {
			probe := fields.Clone()
			if probe == nil {
				probe = ir.IRObject{}
			}
			probe[ir.TypenameKey] = ir.IRString(spec.Typename)
			id, ok := h.cache.Identify(probe)
			if !ok {
				return nil, nil, fmt.Errorf("record %d: no id and %s cannot be identified from its fields", i, spec.Typename)
			}
			rec.ID = id
		}
		records = append(records, rec)
		ids = append(ids, rec.ID)
	}
	return records, ids, nil
}

// convertFrom turns a YAML watch.from into an id string or an IRObject.
func convertFrom(v any) (any, error) {
	switch from := v.(type) {
	case string:
		return from, nil
	case map[string]any:
		return ir.ObjectFromMap(from)
	default:
		return nil, fmt.Errorf("expected id string or object, got %T", v)
	}
}

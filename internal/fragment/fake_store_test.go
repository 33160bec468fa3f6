package fragment

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/fragwatch/internal/ir"
)

// fakeStore is a scripted Store. Diff returns the current diff; deliver
// pushes a diff to every watch callback, cancelled or not, so tests can
// model deliveries that race teardown.
type fakeStore struct {
	mu          sync.Mutex
	ids         map[string]string // Identify: "id" field value to store id
	current     ir.Diff
	diffErr     error
	watchErr    error
	diffCalls   int
	watches     []*fakeWatch
	onWatch     func() // runs inside Watch before it returns
	noImmediate bool
}

type fakeWatch struct {
	opts      ir.WatchOptions
	callback  func(ir.Diff)
	cancelled bool
	cancels   int
}

func newFakeStore(d ir.Diff) *fakeStore {
	return &fakeStore{current: d, ids: map[string]string{}}
}

func (f *fakeStore) Identify(ref any) (string, bool) {
	obj, ok := ref.(ir.IRObject)
	if !ok {
		return "", false
	}
	if id, ok := ir.ReferenceID(obj); ok {
		return id, true
	}
	key, ok := obj["id"].(ir.IRString)
	if !ok {
		return "", false
	}
	id, ok := f.ids[string(key)]
	return id, ok
}

var errUnknownFragment = errors.New("unknown fragment")

func (f *fakeStore) ResolveFragment(doc *ir.Document, name string) (*ir.Fragment, error) {
	if doc == nil || len(doc.Fragments) == 0 {
		return nil, errUnknownFragment
	}
	if name == "" {
		return &doc.Fragments[0], nil
	}
	frag, ok := doc.Lookup(name)
	if !ok {
		return nil, errUnknownFragment
	}
	return frag, nil
}

func (f *fakeStore) Diff(_ context.Context, _ ir.DiffOptions) (ir.Diff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.diffCalls++
	return f.current, f.diffErr
}

func (f *fakeStore) Watch(opts ir.WatchOptions, callback func(ir.Diff)) (func(), error) {
	f.mu.Lock()
	if f.watchErr != nil {
		f.mu.Unlock()
		return nil, f.watchErr
	}
	w := &fakeWatch{opts: opts, callback: callback}
	f.watches = append(f.watches, w)
	current := f.current
	onWatch := f.onWatch
	noImmediate := f.noImmediate
	f.mu.Unlock()

	if opts.Immediate && !noImmediate {
		callback(current)
	}
	if onWatch != nil {
		onWatch()
	}

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.cancelled = true
		w.cancels++
	}, nil
}

// set replaces the diff returned by Diff.
func (f *fakeStore) set(d ir.Diff) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = d
}

// deliver pushes d to every registered watch, including cancelled ones.
func (f *fakeStore) deliver(d ir.Diff) {
	f.mu.Lock()
	watches := append([]*fakeWatch(nil), f.watches...)
	f.mu.Unlock()
	for _, w := range watches {
		w.callback(d)
	}
}

// active returns the number of watches not cancelled.
func (f *fakeStore) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.watches {
		if !w.cancelled {
			n++
		}
	}
	return n
}

func testFragment() *ir.Fragment {
	return &ir.Fragment{
		Name:          "ItemFields",
		TypeCondition: "Item",
		Selections:    ir.SelectionSet{{Name: "id"}, {Name: "text"}},
	}
}

func testDocument() *ir.Document {
	return &ir.Document{Fragments: []ir.Fragment{
		*testFragment(),
		{Name: "ItemText", TypeCondition: "Item", Selections: ir.SelectionSet{{Name: "text"}}},
	}}
}

func completeDiff(text string) ir.Diff {
	return ir.Diff{
		Result:   ir.IRObject{"id": ir.IRInt(1), "text": ir.IRString(text)},
		Complete: true,
	}
}

func partialDiff() ir.Diff {
	return ir.Diff{
		Result:   ir.IRObject{"id": ir.IRInt(1)},
		Complete: false,
		Missing: []ir.MissingError{{
			Message: "Can't find field 'text' on object Item:1",
			Path:    []string{"text"},
			Missing: ir.IRObject{"text": ir.IRString("Can't find field 'text' on object Item:1")},
		}},
	}
}

// recordingListener collects every Result handed to the listener.
type recordingListener struct {
	mu      sync.Mutex
	results []*Result
}

func (l *recordingListener) listen(r *Result) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, r)
}

func (l *recordingListener) all() []*Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Result(nil), l.results...)
}

// countingRecorder counts Recorder calls.
type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[Outcome]int
	started  int
	stopped  int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{outcomes: map[Outcome]int{}}
}

func (r *countingRecorder) Delivery(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[o]++
}

func (r *countingRecorder) SubscriptionStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *countingRecorder) SubscriptionStopped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped++
}

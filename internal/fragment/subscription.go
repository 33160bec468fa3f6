package fragment

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/fragwatch/internal/ir"
)

// State is a subscription lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateActive
	StateTornDown
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateTornDown:
		return "torn_down"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Listener receives every accepted Result in delivery order.
type Listener func(*Result)

// Subscription keeps a Result current for one request.
//
// The current diff and result are replaced, never mutated, on each
// accepted delivery. The listener runs outside the subscription's lock, so
// it may call Current or Stop. A delivery already inside the listener when
// Stop is called completes; any delivery that starts after Stop is
// discarded.
type Subscription struct {
	id       string
	store    Store
	request  ir.DiffOptions
	listener Listener
	logger   *slog.Logger
	recorder Recorder

	mu        sync.Mutex
	state     State
	starting  bool
	immediate bool // next delivery bypasses the equality gate
	diff      ir.Diff
	result    *Result
	cancel    func()
}

// SubscriptionOption configures a Subscription.
type SubscriptionOption func(*subscriptionConfig)

type subscriptionConfig struct {
	listener Listener
	logger   *slog.Logger
	recorder Recorder
	ids      IDGenerator
}

// WithListener sets the function that receives accepted Results.
func WithListener(l Listener) SubscriptionOption {
	return func(c *subscriptionConfig) { c.listener = l }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SubscriptionOption {
	return func(c *subscriptionConfig) { c.logger = logger }
}

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) SubscriptionOption {
	return func(c *subscriptionConfig) { c.recorder = r }
}

// WithIDGenerator sets the subscription id generator. Defaults to UUIDv7Generator.
func WithIDGenerator(g IDGenerator) SubscriptionOption {
	return func(c *subscriptionConfig) { c.ids = g }
}

func newConfig(opts []SubscriptionOption) subscriptionConfig {
	cfg := subscriptionConfig{
		listener: func(*Result) {},
		logger:   slog.Default(),
		recorder: nopRecorder{},
		ids:      UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewSubscription creates an uninitialized subscription for request.
func NewSubscription(store Store, request ir.DiffOptions, opts ...SubscriptionOption) *Subscription {
	cfg := newConfig(opts)
	return &Subscription{
		id:       cfg.ids.Generate(),
		store:    store,
		request:  request,
		listener: cfg.listener,
		logger:   cfg.logger,
		recorder: cfg.recorder,
	}
}

// Subscribe builds the request for opts, then creates and starts a
// subscription for it.
func Subscribe(ctx context.Context, store Store, opts Options, subOpts ...SubscriptionOption) (*Subscription, *Result, error) {
	request, err := BuildRequest(store, opts)
	if err != nil {
		return nil, nil, err
	}
	sub := NewSubscription(store, request, subOpts...)
	initial, err := sub.Start(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sub, initial, nil
}

// ID returns the subscription id.
func (s *Subscription) ID() string {
	return s.id
}

// Request returns the request the subscription reads.
func (s *Subscription) Request() ir.DiffOptions {
	return s.request
}

// State returns the lifecycle state.
func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the latest accepted Result, or nil before Start.
func (s *Subscription) Current() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Start reads the request synchronously, projects the initial Result and
// registers the watch. The store's immediate delivery reaches the listener
// before Start returns.
//
// Start returns the initial Result. If Stop is called before Start
// finishes, the watch is cancelled and Start returns ErrStopped.
func (s *Subscription) Start(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	switch {
	case s.state == StateTornDown:
		s.mu.Unlock()
		return nil, ErrStopped
	case s.state == StateActive || s.starting:
		s.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	s.starting = true
	s.mu.Unlock()

	d, err := s.store.Diff(ctx, s.request)
	if err != nil {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
		return nil, fmt.Errorf("initial diff %q: %w", s.request.ID, err)
	}
	initial := Project(d, nil)

	s.mu.Lock()
	s.starting = false
	if s.state == StateTornDown {
		s.mu.Unlock()
		return nil, ErrStopped
	}
	s.diff = d
	s.result = initial
	s.immediate = true
	s.state = StateActive
	s.mu.Unlock()

	s.recorder.SubscriptionStarted()
	s.logger.Debug("subscription started",
		"subscription", s.id,
		"id", s.request.ID,
		"fragment", fragmentName(s.request.Fragment),
		"complete", initial.Complete,
	)

	cancel, err := s.store.Watch(ir.WatchOptions{DiffOptions: s.request, Immediate: true}, s.onDiff)
	if err != nil {
		s.teardown()
		return nil, fmt.Errorf("watch %q: %w", s.request.ID, err)
	}

	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		cancel()
		return nil, ErrStopped
	}
	s.cancel = cancel
	s.mu.Unlock()

	return initial, nil
}

// Stop deregisters the watch. It is safe to call more than once and from
// the listener.
func (s *Subscription) Stop() {
	s.teardown()
}

func (s *Subscription) teardown() {
	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return
	}
	wasActive := s.state == StateActive
	s.state = StateTornDown
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasActive {
		s.recorder.SubscriptionStopped()
	}
	s.logger.Debug("subscription stopped", "subscription", s.id)
}

// onDiff is the watch callback.
func (s *Subscription) onDiff(d ir.Diff) {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		s.recorder.Delivery(OutcomeDiscarded)
		s.logger.Debug("delivery discarded", "subscription", s.id)
		return
	}

	immediate := s.immediate
	s.immediate = false
	if !immediate && !Changed(s.diff, d) {
		s.mu.Unlock()
		s.recorder.Delivery(OutcomeSuppressed)
		s.logger.Debug("delivery suppressed", "subscription", s.id)
		return
	}

	next := Project(d, s.result)
	s.diff = d
	s.result = next
	s.mu.Unlock()

	s.recorder.Delivery(OutcomeAccepted)
	s.logger.Debug("delivery accepted",
		"subscription", s.id,
		"immediate", immediate,
		"complete", next.Complete,
	)
	s.listener(next)
}

func fragmentName(f *ir.Fragment) string {
	if f == nil {
		return ""
	}
	return f.Name
}

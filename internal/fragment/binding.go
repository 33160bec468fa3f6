package fragment

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/fragwatch/internal/ir"
)

// Binding keeps at most one Subscription for a caller whose options change
// over time.
//
// Update compares the request key of the new options with the active one.
// An equal key keeps the running subscription; a different key stops it
// before the replacement starts, so two subscriptions never run at once.
// Update and Close must not be called from the listener.
type Binding struct {
	store Store
	opts  []SubscriptionOption

	mu  sync.Mutex
	sub *Subscription
	key string
}

// NewBinding creates a Binding. opts apply to every subscription it starts.
func NewBinding(store Store, opts ...SubscriptionOption) *Binding {
	return &Binding{store: store, opts: opts}
}

// Update makes the binding observe opts and returns the current Result.
//
// When the request cannot be built or the new subscription fails to
// start, the previous subscription is stopped and the error returned.
func (b *Binding) Update(ctx context.Context, opts Options) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	request, err := BuildRequest(b.store, opts)
	if err != nil {
		b.stopLocked()
		return nil, err
	}
	key, err := ir.RequestKey(request)
	if err != nil {
		b.stopLocked()
		return nil, fmt.Errorf("request key: %w", err)
	}

	if b.sub != nil && b.key == key && b.sub.State() == StateActive {
		return b.sub.Current(), nil
	}

	b.stopLocked()

	sub := NewSubscription(b.store, request, b.opts...)
	if _, err := sub.Start(ctx); err != nil {
		return nil, err
	}
	b.sub = sub
	b.key = key
	return sub.Current(), nil
}

// Current returns the active subscription's Result, or nil.
func (b *Binding) Current() *Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub == nil {
		return nil
	}
	return b.sub.Current()
}

// Subscription returns the active subscription, or nil.
func (b *Binding) Subscription() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sub
}

// Close stops the active subscription.
func (b *Binding) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
}

func (b *Binding) stopLocked() {
	if b.sub != nil {
		b.sub.Stop()
	}
	b.sub = nil
	b.key = ""
}

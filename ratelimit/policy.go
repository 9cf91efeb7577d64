// Package ratelimit throttles inbound gateway callbacks per channel. Some
// gateways retry rejected requests in a tight loop; the policy caps how many
// requests one callback source may make per window so a misbehaving gateway
// cannot starve the rest.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/arundhatirjnavada/relay/core"
)

var ErrStateNotFound = errors.New("ratelimit: state not found")

// Key identifies one callback source bucket. Scope names the lookup kind the
// route used, so a uuid-routed and an address-routed callback for the same
// channel count separately.
type Key struct {
	ChannelType string
	Scope       string
	Value       string
}

// State is one bucket's window counter.
type State struct {
	Key         Key
	WindowStart time.Time
	Count       int
	UpdatedAt   time.Time
}

type StateStore interface {
	Get(ctx context.Context, key Key) (State, error)
	Upsert(ctx context.Context, state State) error
}

// ThrottledError reports a bucket over budget and how long until its window
// resets.
type ThrottledError struct {
	Key        Key
	RetryAfter time.Duration
}

func (e ThrottledError) Error() string {
	return fmt.Sprintf(
		"ratelimit: channel type %q bucket %q throttled for %s",
		strings.TrimSpace(e.Key.ChannelType),
		strings.TrimSpace(e.Key.Value),
		e.RetryAfter,
	)
}

// ToRelayError wraps the throttle in the relay error envelope so the HTTP
// layer answers 429 with the retry hint in metadata.
func (e ThrottledError) ToRelayError() error {
	metadata := map[string]any{
		"channel_type": strings.TrimSpace(e.Key.ChannelType),
		"bucket":       strings.TrimSpace(e.Key.Value),
	}
	if e.RetryAfter > 0 {
		metadata["retry_after_ms"] = e.RetryAfter.Milliseconds()
	}
	return core.RateLimited("rate limit exceeded", metadata)
}

// Policy is a fixed-window counter. A bucket may make Limit requests per
// Window; the first request past the budget is rejected until the window
// rolls over.
type Policy struct {
	Store  StateStore
	Now    func() time.Time
	Limit  int
	Window time.Duration
}

func NewPolicy(store StateStore, limit int, window time.Duration) *Policy {
	return &Policy{
		Store:  store,
		Now:    func() time.Time { return time.Now().UTC() },
		Limit:  limit,
		Window: window,
	}
}

// Allow counts one request against key's bucket. A nil policy or store, or a
// non-positive limit, allows everything.
func (p *Policy) Allow(ctx context.Context, key Key) error {
	if p == nil || p.Store == nil || p.Limit <= 0 {
		return nil
	}
	key = normalizeKey(key)
	now := p.now()

	state, err := p.Store.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrStateNotFound) {
		return err
	}
	if errors.Is(err, ErrStateNotFound) || now.Sub(state.WindowStart) >= p.window() {
		state = State{Key: key, WindowStart: now}
	}

	if state.Count >= p.Limit {
		retryAfter := state.WindowStart.Add(p.window()).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return ThrottledError{Key: key, RetryAfter: retryAfter}.ToRelayError()
	}

	state.Count++
	state.UpdatedAt = now
	return p.Store.Upsert(ctx, state)
}

func (p *Policy) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *Policy) window() time.Duration {
	if p != nil && p.Window > 0 {
		return p.Window
	}
	return time.Minute
}

func normalizeKey(key Key) Key {
	return Key{
		ChannelType: strings.TrimSpace(strings.ToLower(key.ChannelType)),
		Scope:       strings.TrimSpace(strings.ToLower(key.Scope)),
		Value:       strings.TrimSpace(key.Value),
	}
}

type MemoryStateStore struct {
	mu    sync.RWMutex
	items map[string]State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{items: map[string]State{}}
}

func (s *MemoryStateStore) Get(_ context.Context, key Key) (State, error) {
	if s == nil {
		return State{}, fmt.Errorf("ratelimit: state store is nil")
	}
	normalized := normalizeKey(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.items[stateKey(normalized)]
	if !ok {
		return State{}, ErrStateNotFound
	}
	return state, nil
}

func (s *MemoryStateStore) Upsert(_ context.Context, state State) error {
	if s == nil {
		return fmt.Errorf("ratelimit: state store is nil")
	}
	state.Key = normalizeKey(state.Key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[stateKey(state.Key)] = state
	return nil
}

func stateKey(key Key) string {
	return key.ChannelType + "|" + key.Scope + "|" + key.Value
}

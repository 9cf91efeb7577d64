package inbound

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/arundhatirjnavada/relay/core"
)

// LookupMode says how a route addresses its channel.
type LookupMode string

const (
	LookupUUID          LookupMode = "uuid"
	LookupAddress       LookupMode = "address"
	LookupUUIDOrAddress LookupMode = "uuid_or_address"
)

// Route describes the URL shape an adapter is mounted at. An empty Actions
// slice means the route has a single implicit action and the adapter derives
// the event kind from the payload.
type Route struct {
	Actions []string
	Lookup  LookupMode
	Methods []string
}

func (r Route) AllowsAction(action string) bool {
	if len(r.Actions) == 0 {
		return true
	}
	for _, allowed := range r.Actions {
		if allowed == action {
			return true
		}
	}
	return false
}

func (r Route) AllowsMethod(method string) bool {
	if len(r.Methods) == 0 {
		return true
	}
	for _, allowed := range r.Methods {
		if allowed == method {
			return true
		}
	}
	return false
}

// Parsed is the result of one adapter parse. When Response is set the request
// short-circuits: no events are applied and the response goes straight back
// (gateway pings, test console probes, ignorable callbacks).
type Parsed struct {
	Events   []core.InboundEvent
	Response *Response
}

// Outcome summarizes what the lifecycle engine did with a request's events.
// Ackers build provider-exact bodies from it.
type Outcome struct {
	Msgs    []core.Msg
	Updated int64
	Status  core.MsgStatus
}

// Adapter is the per-gateway contract. Implementations are stateless values
// composed from shared helpers; behavior differences live in data (status
// tables, route shapes) wherever possible.
type Adapter interface {
	ChannelType() core.ChannelType
	Route() Route

	// Authenticate validates the request against the channel's credentials.
	// A failure here is a hard reject and no state change may follow it.
	Authenticate(ctx context.Context, req *Request, ch core.Channel) error

	// Parse validates the payload and produces normalized events. One missing
	// or malformed required field fails the whole request.
	Parse(ctx context.Context, req *Request, ch core.Channel) (Parsed, error)

	// MapStatus translates a raw gateway status code. Misses are reported by
	// the dispatcher, never guessed.
	MapStatus(raw string) (core.MsgStatus, bool)
}

// Acker customizes the acknowledgement body. Adapters without it get the
// dispatcher defaults.
type Acker interface {
	Ack(action string, out Outcome) Response
}

// ChannelResolver overrides the default route-key channel lookup for gateways
// with nonstandard addressing.
type ChannelResolver interface {
	ResolveChannel(ctx context.Context, req *Request, store core.ChannelStore) (core.Channel, error)
}

// Registry is the static adapter table. Adapters are registered explicitly at
// composition time; there is no scanning or reflection.
type Registry struct {
	mu       sync.RWMutex
	adapters map[core.ChannelType]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: map[core.ChannelType]Adapter{}}
}

func (r *Registry) Register(adapter Adapter) error {
	if r == nil {
		return core.Internal("inbound: registry is nil", nil)
	}
	if adapter == nil {
		return core.BadInput("inbound: adapter is nil", nil)
	}
	channelType := adapter.ChannelType()
	if channelType == "" {
		return core.BadInput("inbound: adapter has no channel type", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[channelType]; exists {
		return goerrors.New(
			fmt.Sprintf("inbound: adapter already registered for %q", channelType),
			goerrors.CategoryConflict,
		).WithCode(http.StatusConflict).WithTextCode(core.RelayErrorBadInput)
	}
	r.adapters[channelType] = adapter
	return nil
}

// RegisterAll registers every adapter, stopping at the first failure.
func (r *Registry) RegisterAll(adapters ...Adapter) error {
	for _, adapter := range adapters {
		if err := r.Register(adapter); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Get(channelType core.ChannelType) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[channelType]
	return adapter, ok
}

// Types lists registered channel types in stable order.
func (r *Registry) Types() []core.ChannelType {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]core.ChannelType, 0, len(r.adapters))
	for channelType := range r.adapters {
		types = append(types, channelType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

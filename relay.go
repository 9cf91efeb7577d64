// Package relay wires the full inbound pipeline: provider registry, channel
// store, lifecycle engine, dispatcher and HTTP mount. New assembles the
// pieces with in-memory defaults; deployments swap in the SQL stores and a
// task enqueuer through options.
package relay

import (
	"fmt"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
	"github.com/arundhatirjnavada/relay/lifecycle"
	"github.com/arundhatirjnavada/relay/providers"
	"github.com/arundhatirjnavada/relay/store/memory"
	"github.com/arundhatirjnavada/relay/web"
)

type Relay struct {
	config     core.Config
	registry   *inbound.Registry
	engine     *lifecycle.Engine
	dispatcher *inbound.Dispatcher
	server     *web.Server
}

type Option func(*options)

type options struct {
	channels   core.ChannelStore
	msgs       core.MsgStore
	contacts   core.ContactResolver
	tasks      core.TaskEnqueuer
	triggers   core.TriggerSink
	events     core.ChannelEventSink
	broadcasts core.BroadcastUpdater
	provider   core.LoggerProvider
	logger     core.Logger
	metrics    core.MetricsRecorder
	registry   *inbound.Registry
	serverOpts []web.ServerOption
}

func WithChannelStore(store core.ChannelStore) Option {
	return func(o *options) { o.channels = store }
}

func WithMsgStore(store core.MsgStore) Option {
	return func(o *options) { o.msgs = store }
}

func WithContactResolver(resolver core.ContactResolver) Option {
	return func(o *options) { o.contacts = resolver }
}

func WithTaskEnqueuer(tasks core.TaskEnqueuer) Option {
	return func(o *options) { o.tasks = tasks }
}

func WithTriggerSink(sink core.TriggerSink) Option {
	return func(o *options) { o.triggers = sink }
}

func WithChannelEventSink(sink core.ChannelEventSink) Option {
	return func(o *options) { o.events = sink }
}

func WithBroadcastUpdater(updater core.BroadcastUpdater) Option {
	return func(o *options) { o.broadcasts = updater }
}

func WithLogger(provider core.LoggerProvider, logger core.Logger) Option {
	return func(o *options) {
		o.provider = provider
		o.logger = logger
	}
}

func WithMetrics(metrics core.MetricsRecorder) Option {
	return func(o *options) { o.metrics = metrics }
}

// WithRegistry replaces the default registry of all built-in providers, for
// deployments that mount a subset or add custom adapters.
func WithRegistry(registry *inbound.Registry) Option {
	return func(o *options) { o.registry = registry }
}

func WithServerOptions(opts ...web.ServerOption) Option {
	return func(o *options) { o.serverOpts = append(o.serverOpts, opts...) }
}

func New(config core.Config, opts ...Option) (*Relay, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("relay: invalid config: %w", err)
	}

	cfg := options{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	registry := cfg.registry
	if registry == nil {
		var err error
		registry, err = providers.NewRegistry()
		if err != nil {
			return nil, fmt.Errorf("relay: provider registry: %w", err)
		}
	}

	if cfg.msgs == nil {
		cfg.msgs = memory.NewMsgStore()
	}
	if cfg.contacts == nil {
		cfg.contacts = memory.NewContactStore()
	}
	if cfg.channels == nil {
		cfg.channels = memory.NewChannelStore()
	}

	engine := lifecycle.NewEngine(
		cfg.msgs,
		cfg.contacts,
		core.NewObserver(config.ServiceName, cfg.provider, cfg.logger, cfg.metrics),
	)
	engine.Tasks = cfg.tasks
	engine.Triggers = cfg.triggers
	engine.Events = cfg.events
	engine.Broadcasts = cfg.broadcasts

	dispatcher := inbound.NewDispatcher(
		registry,
		cfg.channels,
		engine,
		core.NewObserver(config.ServiceName, cfg.provider, cfg.logger, cfg.metrics),
	)
	server := web.NewServer(dispatcher, config, cfg.provider, cfg.logger, cfg.serverOpts...)

	return &Relay{
		config:     config,
		registry:   registry,
		engine:     engine,
		dispatcher: dispatcher,
		server:     server,
	}, nil
}

func (r *Relay) Config() core.Config {
	if r == nil {
		return core.Config{}
	}
	return r.config
}

func (r *Relay) Registry() *inbound.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Relay) Engine() *lifecycle.Engine {
	if r == nil {
		return nil
	}
	return r.engine
}

func (r *Relay) Dispatcher() *inbound.Dispatcher {
	if r == nil {
		return nil
	}
	return r.dispatcher
}

// Handler returns the HTTP mount for all channel callbacks.
func (r *Relay) Handler() http.Handler {
	if r == nil || r.server == nil {
		return http.NotFoundHandler()
	}
	return r.server.Handler()
}

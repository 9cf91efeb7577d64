package inbound

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/arundhatirjnavada/relay/core"
)

// Applied is what the lifecycle engine did with a single event.
type Applied struct {
	Msg     *core.Msg
	Updated int64
	Status  core.MsgStatus
}

// EventApplier is the lifecycle engine seam. The dispatcher never touches
// stores directly.
type EventApplier interface {
	Apply(ctx context.Context, ch core.Channel, ev core.InboundEvent) (Applied, error)
}

// Dispatcher drives one gateway callback end to end: adapter lookup, channel
// resolution, authentication, payload parse, event application, ack.
type Dispatcher struct {
	registry *Registry
	channels core.ChannelStore
	engine   EventApplier
	observer *core.Observer
	Now      func() time.Time
}

func NewDispatcher(
	registry *Registry,
	channels core.ChannelStore,
	engine EventApplier,
	observer *core.Observer,
) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		channels: channels,
		engine:   engine,
		observer: observer,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, channelType core.ChannelType, req *Request) (Response, error) {
	if d == nil {
		return Response{}, core.Internal("inbound: dispatcher is nil", nil)
	}
	if req == nil {
		return Response{}, core.BadInput("inbound: request is nil", nil)
	}
	startedAt := d.now()
	fields := map[string]any{
		"channel_type": string(channelType),
		"action":       req.Action,
	}

	adapter, ok := d.registry.Get(channelType)
	if !ok {
		err := core.ChannelNotFound(
			fmt.Sprintf("no handler for channel type %q", channelType),
			map[string]any{"channel_type": string(channelType)},
		)
		d.observer.Observe(ctx, startedAt, "dispatch", err, fields)
		return Response{}, err
	}

	route := adapter.Route()
	if req.Method != "" && !route.AllowsMethod(req.Method) {
		err := core.BadInput(
			fmt.Sprintf("method %s not supported", req.Method),
			map[string]any{"channel_type": string(channelType), "method": req.Method},
		)
		d.observer.Observe(ctx, startedAt, "dispatch", err, fields)
		return Response{}, err
	}
	if !route.AllowsAction(req.Action) {
		err := core.BadInput(
			"Not handled",
			map[string]any{"channel_type": string(channelType), "action": req.Action},
		)
		d.observer.Observe(ctx, startedAt, "dispatch", err, fields)
		return Response{}, err
	}

	ch, err := d.resolveChannel(ctx, adapter, route, req)
	if err != nil {
		d.observer.Observe(ctx, startedAt, "dispatch", err, fields)
		return Response{}, err
	}
	fields["channel_uuid"] = ch.UUID

	if err := adapter.Authenticate(ctx, req, ch); err != nil {
		d.observer.LogSecurity(ctx, "request authentication rejected", map[string]any{
			"channel_type": string(channelType),
			"channel_uuid": ch.UUID,
			"action":       req.Action,
			"error":        err.Error(),
		})
		d.observer.Observe(ctx, startedAt, "dispatch", err, fields)
		return Response{}, err
	}

	parsed, err := adapter.Parse(ctx, req, ch)
	if err != nil {
		d.observer.Observe(ctx, startedAt, "dispatch", err, fields)
		return Response{}, err
	}
	if parsed.Response != nil {
		d.observer.Observe(ctx, startedAt, "dispatch", nil, fields)
		return *parsed.Response, nil
	}

	out := Outcome{}
	for _, ev := range parsed.Events {
		applied, err := d.applyEvent(ctx, adapter, ch, ev)
		if err != nil {
			d.observer.Observe(ctx, startedAt, operationFor(ev.Kind), err, fields)
			return Response{}, err
		}
		if applied.Msg != nil {
			out.Msgs = append(out.Msgs, *applied.Msg)
		}
		out.Updated += applied.Updated
		if applied.Status != "" {
			out.Status = applied.Status
		}
		d.observer.Observe(ctx, startedAt, operationFor(ev.Kind), nil, fields)
	}

	if acker, ok := adapter.(Acker); ok {
		return acker.Ack(req.Action, out), nil
	}
	return defaultAck(out), nil
}

func (d *Dispatcher) applyEvent(
	ctx context.Context,
	adapter Adapter,
	ch core.Channel,
	ev core.InboundEvent,
) (Applied, error) {
	if ev.Kind == core.EventStatusUpdate && ev.Status == "" {
		status, ok := adapter.MapStatus(ev.RawStatus)
		if !ok {
			return Applied{}, core.StatusUnknown(
				fmt.Sprintf("Unrecognized status code: '%s', ignoring message.", ev.RawStatus),
				map[string]any{
					"channel_type": string(ch.Type),
					"channel_uuid": ch.UUID,
					"raw_status":   ev.RawStatus,
				},
			)
		}
		ev.Status = status
	}
	return d.engine.Apply(ctx, ch, ev)
}

func (d *Dispatcher) resolveChannel(
	ctx context.Context,
	adapter Adapter,
	route Route,
	req *Request,
) (core.Channel, error) {
	channelType := adapter.ChannelType()
	if resolver, ok := adapter.(ChannelResolver); ok {
		ch, err := resolver.ResolveChannel(ctx, req, d.channels)
		if err != nil {
			return core.Channel{}, ensureChannelNotFound(err, channelType, req.Lookup)
		}
		return ch, nil
	}

	var (
		ch  core.Channel
		err error
	)
	switch route.Lookup {
	case LookupAddress:
		ch, err = d.channels.GetByAddress(ctx, channelType, req.Lookup.Address)
	case LookupUUIDOrAddress:
		if strings.TrimSpace(req.Lookup.UUID) != "" {
			ch, err = d.channels.GetByUUID(ctx, channelType, req.Lookup.UUID)
		} else {
			ch, err = d.channels.GetByAddress(ctx, channelType, req.Lookup.Address)
		}
	default:
		ch, err = d.channels.GetByUUID(ctx, channelType, req.Lookup.UUID)
	}
	if err != nil {
		return core.Channel{}, ensureChannelNotFound(err, channelType, req.Lookup)
	}
	return ch, nil
}

func ensureChannelNotFound(err error, channelType core.ChannelType, lookup Lookup) error {
	if core.IsTextCode(err, core.RelayErrorChannelNotFound) {
		return err
	}
	return core.WrapError(
		err,
		goerrors.CategoryNotFound,
		"channel not found",
		http.StatusNotFound,
		core.RelayErrorChannelNotFound,
		map[string]any{
			"channel_type": string(channelType),
			"uuid":         lookup.UUID,
			"address":      lookup.Address,
		},
	)
}

func defaultAck(out Outcome) Response {
	if len(out.Msgs) > 0 {
		return OK("Message Accepted")
	}
	return OK("SMS Status Updated")
}

func operationFor(kind core.EventKind) string {
	switch kind {
	case core.EventStatusUpdate:
		return "status"
	case core.EventCall:
		return "call"
	case core.EventStopContact:
		return "stop"
	default:
		return "receive"
	}
}

func (d *Dispatcher) now() time.Time {
	if d != nil && d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

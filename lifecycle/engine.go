// Package lifecycle owns message state: creating inbound messages and moving
// outbound messages through the delivery state machine. Every transition is a
// single conditional update at the store, so concurrent callbacks for the
// same message race safely without in-process locking.
package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

// Engine applies normalized inbound events against the backing store and the
// downstream collaborators. Collaborators other than Msgs may be nil; their
// effects are skipped.
type Engine struct {
	Msgs       core.MsgStore
	Contacts   core.ContactResolver
	Tasks      core.TaskEnqueuer
	Triggers   core.TriggerSink
	Events     core.ChannelEventSink
	Broadcasts core.BroadcastUpdater
	Observer   *core.Observer
	Now        func() time.Time
}

func NewEngine(msgs core.MsgStore, contacts core.ContactResolver, observer *core.Observer) *Engine {
	return &Engine{
		Msgs:     msgs,
		Contacts: contacts,
		Observer: observer,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Apply routes one event to the matching operation. Implements the dispatcher
// seam.
func (e *Engine) Apply(ctx context.Context, ch core.Channel, ev core.InboundEvent) (inbound.Applied, error) {
	if e == nil {
		return inbound.Applied{}, core.Internal("lifecycle: engine is nil", nil)
	}
	switch ev.Kind {
	case core.EventNewMessage:
		msg, err := e.CreateIncoming(ctx, ch, ev)
		if err != nil {
			return inbound.Applied{}, err
		}
		return inbound.Applied{Msg: &msg}, nil
	case core.EventHandleMsg:
		return inbound.Applied{}, e.EnqueueExisting(ctx, ch, ev)
	case core.EventStatusUpdate:
		updated, err := e.ApplyStatus(ctx, ch, ev)
		if err != nil {
			return inbound.Applied{}, err
		}
		return inbound.Applied{Updated: updated, Status: ev.Status}, nil
	case core.EventStopContact:
		if ev.URN == "" && ev.Lookup.Key != "" {
			return inbound.Applied{}, e.stopFromLookup(ctx, ch, ev.Lookup)
		}
		return inbound.Applied{}, e.StopContact(ctx, ch, ev.URN)
	case core.EventCall, core.EventVerify, core.EventTrigger:
		return inbound.Applied{}, e.catchTrigger(ctx, ch, ev)
	default:
		return inbound.Applied{}, core.BadInput(
			fmt.Sprintf("lifecycle: unsupported event kind %q", ev.Kind),
			map[string]any{"kind": string(ev.Kind)},
		)
	}
}

// CreateIncoming stores one inbound message. The contact is resolved first;
// anonymized orgs never get a contact created from gateway metadata, the
// message is stored against the bare URN instead. The provider's external id
// is persisted with the insert so a status callback arriving immediately
// after can already correlate.
func (e *Engine) CreateIncoming(ctx context.Context, ch core.Channel, ev core.InboundEvent) (core.Msg, error) {
	if ev.URN == "" {
		return core.Msg{}, core.BadInput("lifecycle: message without sender urn", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}

	var contactID int64
	if e.Contacts != nil {
		name := ev.ContactName
		if ch.OrgAnon {
			name = ""
		}
		contact, ok, err := e.Contacts.ResolveOrCreate(ctx, ch.OrgID, ev.URN, name)
		if err != nil {
			return core.Msg{}, core.WrapError(err, goerrors.CategoryInternal, "lifecycle: resolve contact", 0, core.RelayErrorInternal, map[string]any{
				"channel_uuid": ch.UUID,
				"urn":          ev.URN,
			})
		}
		if ok {
			contactID = contact.ID
		}
	}

	occurredOn := e.now()
	if ev.OccurredOn != nil && !ev.OccurredOn.IsZero() {
		occurredOn = ev.OccurredOn.UTC()
	}

	status := core.StatusPending
	if ev.InitialStatus != "" {
		status = ev.InitialStatus
	}

	msg, err := e.Msgs.CreateIncoming(ctx, core.CreateMsgInput{
		ChannelID:  ch.ID,
		OrgID:      ch.OrgID,
		ContactID:  contactID,
		URN:        ev.URN,
		Direction:  core.DirectionIn,
		Text:       ev.Text,
		Status:     status,
		ExternalID: ev.ExternalID,
		Media:      ev.Media,
		SentOn:     &occurredOn,
	})
	if err != nil {
		return core.Msg{}, core.WrapError(err, goerrors.CategoryInternal, "lifecycle: store message", 0, core.RelayErrorInternal, map[string]any{
			"channel_uuid": ch.UUID,
			"urn":          ev.URN,
		})
	}

	if e.Tasks != nil {
		if err := e.Tasks.EnqueueHandleMsg(ctx, msg); err != nil {
			e.Observer.LogError(ctx, "enqueue handle task failed", map[string]any{
				"channel_uuid": ch.UUID,
				"msg_id":       msg.ID,
				"error":        err.Error(),
			})
		}
	}
	return msg, nil
}

// ApplyStatus moves the messages a callback refers to into ev.Status. The
// forward edges are monotonic: a SENT confirmation only lands on messages
// still pending, queued or wired, so a late SENT can never demote DELIVERED.
// DELIVERED and FAILED land unconditionally unless the adapter's policy says
// otherwise. Returns the number of messages changed; zero changes against
// messages that exist is an idempotent success, zero against nothing is a
// miss.
func (e *Engine) ApplyStatus(ctx context.Context, ch core.Channel, ev core.InboundEvent) (int64, error) {
	if ev.Lookup.Key == "" {
		return 0, core.BadInput("lifecycle: status without message reference", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}

	var allowed []core.MsgStatus
	switch ev.Status {
	case core.StatusSent, core.StatusWired:
		allowed = core.PreSentStatuses()
	case core.StatusDelivered:
		if ev.Policy.DeliverRequiresWired {
			allowed = []core.MsgStatus{core.StatusWired}
		}
	case core.StatusFailed:
		if ev.Policy.IgnoreFailed {
			return 0, nil
		}
	case "":
		return 0, core.BadInput("lifecycle: status event without status", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}

	updated, err := e.Msgs.UpdateStatusWhere(ctx, ch.ID, ev.Lookup, allowed, ev.Status)
	if err != nil {
		return 0, core.WrapError(err, goerrors.CategoryInternal, "lifecycle: update status", 0, core.RelayErrorInternal, map[string]any{
			"channel_uuid": ch.UUID,
			"lookup":       string(ev.Lookup.Mode),
			"key":          ev.Lookup.Key,
		})
	}

	if updated == 0 {
		msgs, err := e.findMsgs(ctx, ch, ev.Lookup)
		if err != nil {
			return 0, err
		}
		if len(msgs) == 0 {
			if ev.Policy.IgnoreMissing {
				return 0, nil
			}
			return 0, core.MsgNotFound(
				fmt.Sprintf("message with id %q not found", ev.Lookup.Key),
				map[string]any{
					"channel_uuid": ch.UUID,
					"lookup":       string(ev.Lookup.Mode),
					"key":          ev.Lookup.Key,
				},
			)
		}
		// messages exist but the guard held: a duplicate or out-of-order
		// callback, acknowledged without changing anything
		return 0, nil
	}

	if ev.Status == core.StatusDelivered || ev.Status == core.StatusFailed {
		e.afterTerminalStatus(ctx, ch, ev)
	}
	return updated, nil
}

// StopContact marks a recipient unreachable, e.g. after a gateway nack that
// says the address no longer exists.
func (e *Engine) StopContact(ctx context.Context, ch core.Channel, urn string) error {
	if e.Contacts == nil {
		return nil
	}
	if urn == "" {
		return core.BadInput("lifecycle: stop without urn", map[string]any{"channel_uuid": ch.UUID})
	}
	if err := e.Contacts.Stop(ctx, ch.OrgID, urn); err != nil {
		return core.WrapError(err, goerrors.CategoryInternal, "lifecycle: stop contact", 0, core.RelayErrorInternal, map[string]any{
			"channel_uuid": ch.UUID,
			"urn":          urn,
		})
	}
	return nil
}

// stopFromLookup stops the recipients of the messages a callback referenced,
// for gateways that report dead addresses against a message id only.
func (e *Engine) stopFromLookup(ctx context.Context, ch core.Channel, lookup core.StatusLookup) error {
	msgs, err := e.findMsgs(ctx, ch, lookup)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if err := e.StopContact(ctx, ch, msg.URN); err != nil {
			return err
		}
	}
	return nil
}

// EnqueueExisting re-enqueues the handler task for a message that is already
// stored. The message service posting the notification owns the row; only
// the task is scheduled here, so enqueue failures are hard errors rather
// than best-effort.
func (e *Engine) EnqueueExisting(ctx context.Context, ch core.Channel, ev core.InboundEvent) error {
	id, err := strconv.ParseInt(ev.Lookup.Key, 10, 64)
	if err != nil || id <= 0 {
		return core.MalformedPayload("Invalid message_id", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	if e.Tasks == nil {
		return nil
	}
	if err := e.Tasks.EnqueueHandleMsg(ctx, core.Msg{ID: id}); err != nil {
		return core.WrapError(err, goerrors.CategoryInternal, "lifecycle: enqueue handler task", 0, core.RelayErrorInternal, map[string]any{
			"channel_uuid": ch.UUID,
			"msg_id":       id,
		})
	}
	return nil
}

func (e *Engine) catchTrigger(ctx context.Context, ch core.Channel, ev core.InboundEvent) error {
	if e.Triggers == nil || ev.Trigger == "" {
		return nil
	}
	if err := e.Triggers.CatchTrigger(ctx, ev.Trigger, ch, ev.URN); err != nil {
		return core.WrapError(err, goerrors.CategoryInternal, "lifecycle: catch trigger", 0, core.RelayErrorInternal, map[string]any{
			"channel_uuid": ch.UUID,
			"trigger":      string(ev.Trigger),
		})
	}
	return nil
}

// afterTerminalStatus runs the best-effort side effects of a terminal status:
// channel health tracking on failure and broadcast rollup recomputation.
// Failures here are logged, the callback itself already succeeded.
func (e *Engine) afterTerminalStatus(ctx context.Context, ch core.Channel, ev core.InboundEvent) {
	if e.Events == nil && e.Broadcasts == nil {
		return
	}
	msgs, err := e.findMsgs(ctx, ch, ev.Lookup)
	if err != nil {
		e.Observer.LogError(ctx, "load messages for status side effects", map[string]any{
			"channel_uuid": ch.UUID,
			"key":          ev.Lookup.Key,
			"error":        err.Error(),
		})
		return
	}
	seenBroadcasts := map[int64]bool{}
	for _, msg := range msgs {
		if ev.Status == core.StatusFailed && e.Events != nil {
			if err := e.Events.TrackFailure(ctx, ch, msg); err != nil {
				e.Observer.LogError(ctx, "track delivery failure", map[string]any{
					"channel_uuid": ch.UUID,
					"msg_id":       msg.ID,
					"error":        err.Error(),
				})
			}
		}
		if e.Broadcasts != nil && msg.BroadcastID != 0 && !seenBroadcasts[msg.BroadcastID] {
			seenBroadcasts[msg.BroadcastID] = true
			if err := e.Broadcasts.Update(ctx, msg.BroadcastID); err != nil {
				e.Observer.LogError(ctx, "update broadcast rollup", map[string]any{
					"channel_uuid": ch.UUID,
					"broadcast_id": msg.BroadcastID,
					"error":        err.Error(),
				})
			}
		}
	}
}

func (e *Engine) findMsgs(ctx context.Context, ch core.Channel, lookup core.StatusLookup) ([]core.Msg, error) {
	switch lookup.Mode {
	case core.LookupByExternalID:
		msgs, err := e.Msgs.FindByExternalID(ctx, ch.ID, lookup.Key)
		if err != nil {
			return nil, core.WrapError(err, goerrors.CategoryInternal, "lifecycle: find by external id", 0, core.RelayErrorInternal, nil)
		}
		return msgs, nil
	default:
		id, err := strconv.ParseInt(lookup.Key, 10, 64)
		if err != nil {
			return nil, core.BadInput(
				fmt.Sprintf("lifecycle: invalid message id %q", lookup.Key),
				map[string]any{"channel_uuid": ch.UUID},
			)
		}
		msgs, err := e.Msgs.FindByID(ctx, ch.ID, id)
		if err != nil {
			return nil, core.WrapError(err, goerrors.CategoryInternal, "lifecycle: find by id", 0, core.RelayErrorInternal, nil)
		}
		return msgs, nil
	}
}

func (e *Engine) now() time.Time {
	if e != nil && e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

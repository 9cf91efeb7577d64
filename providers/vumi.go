package providers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

type vumiPayload struct {
	MessageID     string `json:"message_id"`
	UserMessageID string `json:"user_message_id"`
	EventType     string `json:"event_type"`
	NackReason    string `json:"nack_reason"`
	DeliveryStatus string `json:"delivery_status"`
	FromAddr      string `json:"from_addr"`
	Content       string `json:"content"`
	Timestamp     string `json:"timestamp"`
	SessionEvent  string `json:"session_event"`
}

// Vumi handles the Vumi / Vumi Go transport. Its event semantics carry two
// long-standing quirks: failed delivery reports are not trusted and are
// dropped outright, and a delivery confirmation only lands on messages still
// wired, because Vumi re-reports events for retried messages.
type Vumi struct {
	noAuth
	noStatusTable
	channelType core.ChannelType
}

func NewVumi(channelType core.ChannelType) Vumi {
	return Vumi{channelType: channelType}
}

func (v Vumi) ChannelType() core.ChannelType { return v.channelType }

func (Vumi) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"event", "receive"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (v Vumi) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	var payload vumiPayload
	if err := req.DecodeJSON(&payload); err != nil {
		return inbound.Parsed{}, core.MalformedPayload("invalid json payload", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}

	if req.Action == "event" {
		if payload.UserMessageID == "" || payload.EventType == "" {
			return inbound.Parsed{}, core.MalformedPayload("missing event fields", map[string]any{
				"channel_uuid": ch.UUID,
			})
		}
		switch payload.EventType {
		case "ack":
			ev := core.StatusEvent(core.LookupByExternalID, payload.UserMessageID, payload.EventType)
			ev.Status = core.StatusSent
			return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
		case "nack":
			fail := core.StatusEvent(core.LookupByExternalID, payload.UserMessageID, payload.EventType)
			fail.Status = core.StatusFailed
			if strings.Contains(payload.NackReason, "Unknown address") {
				// the recipient no longer exists on the transport side
				stop := core.InboundEvent{
					Kind:   core.EventStopContact,
					Lookup: core.StatusLookup{Mode: core.LookupByExternalID, Key: payload.UserMessageID},
				}
				return inbound.Parsed{Events: []core.InboundEvent{fail, stop}}, nil
			}
			return inbound.Parsed{Events: []core.InboundEvent{fail}}, nil
		case "delivery_report":
			switch payload.DeliveryStatus {
			case "failed":
				// vumi failure reports are unreliable, deliberately dropped
				ev := core.StatusEvent(core.LookupByExternalID, payload.UserMessageID, payload.DeliveryStatus)
				ev.Status = core.StatusFailed
				ev.Policy.IgnoreFailed = true
				return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
			case "delivered":
				ev := core.StatusEvent(core.LookupByExternalID, payload.UserMessageID, payload.DeliveryStatus)
				ev.Status = core.StatusDelivered
				ev.Policy.DeliverRequiresWired = true
				return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
			default:
				ok := inbound.OK("Delivery report ignored")
				return inbound.Parsed{Response: &ok}, nil
			}
		default:
			ok := inbound.OK("Unknown event ignored")
			return inbound.Parsed{Response: &ok}, nil
		}
	}

	if payload.MessageID == "" || payload.FromAddr == "" {
		return inbound.Parsed{}, core.MalformedPayload("missing message fields", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	urn, err := telURN(payload.FromAddr, ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, payload.Content)
	ev.ExternalID = payload.MessageID
	ev.OccurredOn = vumiTime(payload.Timestamp)
	if payload.SessionEvent == "close" {
		// USSD session end, stored as an interrupted message
		ev.InitialStatus = core.StatusInterrupted
	}
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Vumi) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "receive" && len(out.Msgs) > 0 {
		return inbound.JSON(http.StatusOK, map[string]any{"message_id": out.Msgs[0].ID})
	}
	return inbound.JSON(http.StatusOK, map[string]any{"updated": out.Updated})
}

func vumiTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05.999999", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}

package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var mbloxStatuses = core.StatusTable{
	"Delivered":  core.StatusDelivered,
	"Dispatched": core.StatusSent,
	"Aborted":    core.StatusFailed,
	"Rejected":   core.StatusFailed,
	"Failed":     core.StatusFailed,
	"Expired":    core.StatusFailed,
}

type mbloxPayload struct {
	Type       string `json:"type"`
	BatchID    string `json:"batch_id"`
	Status     string `json:"status"`
	ID         string `json:"id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Body       string `json:"body"`
	ReceivedAt string `json:"received_at"`
}

// Mblox handles the Mblox (Sinch) JSON callbacks. One endpoint, the payload
// type field selects between delivery reports and mobile-originated text.
type Mblox struct {
	noAuth
}

func (Mblox) ChannelType() core.ChannelType { return core.ChannelTypeMblox }

func (Mblox) Route() inbound.Route {
	return inbound.Route{
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (Mblox) MapStatus(raw string) (core.MsgStatus, bool) {
	return mbloxStatuses.Map(raw)
}

func (Mblox) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	var payload mbloxPayload
	if err := req.DecodeJSON(&payload); err != nil {
		return inbound.Parsed{}, core.MalformedPayload("invalid json payload", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}

	switch payload.Type {
	case "recipient_delivery_report_sms":
		if payload.BatchID == "" || payload.Status == "" {
			return inbound.Parsed{}, core.MalformedPayload("missing batch_id or status", map[string]any{
				"channel_uuid": ch.UUID,
			})
		}
		return inbound.Parsed{Events: []core.InboundEvent{
			core.StatusEvent(core.LookupByExternalID, payload.BatchID, payload.Status),
		}}, nil
	case "mo_text":
		if payload.ID == "" || payload.From == "" || payload.To == "" || payload.Body == "" || payload.ReceivedAt == "" {
			return inbound.Parsed{}, core.MalformedPayload("missing mo_text fields", map[string]any{
				"channel_uuid": ch.UUID,
			})
		}
		urn, err := telURN(payload.From, ch)
		if err != nil {
			return inbound.Parsed{}, err
		}
		ev := core.NewMessageEvent(urn, payload.Body)
		ev.ExternalID = payload.ID
		if occurred, parseErr := time.Parse(time.RFC3339, payload.ReceivedAt); parseErr == nil {
			utc := occurred.UTC()
			ev.OccurredOn = &utc
		}
		return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
	default:
		return inbound.Parsed{}, core.MalformedPayload(
			fmt.Sprintf("unknown payload type %q", payload.Type),
			map[string]any{"channel_uuid": ch.UUID},
		)
	}
}

func (Mblox) Ack(_ string, out inbound.Outcome) inbound.Response {
	if len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("SMS Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("SMS Status Updated")
}

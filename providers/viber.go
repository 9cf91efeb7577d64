package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

type viberPayload struct {
	MessageToken int64  `json:"message_token"`
	PhoneNumber  string `json:"phone_number"`
	Time         int64  `json:"time"`
	Message      struct {
		Text string `json:"text"`
	} `json:"message"`
}

// Viber handles Viber service messages. The gateway only ever reports one
// terminal state, delivered, and retries callbacks on non-200 responses, so
// a report for a message we no longer know about is answered 200 and dropped.
type Viber struct {
	noAuth
	noStatusTable
}

func (Viber) ChannelType() core.ChannelType { return core.ChannelTypeViber }

func (Viber) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive", "status"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (Viber) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	var payload viberPayload
	if err := req.DecodeJSON(&payload); err != nil {
		return inbound.Parsed{}, core.MalformedPayload("invalid json payload", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	if payload.MessageToken == 0 {
		return inbound.Parsed{}, core.MalformedPayload("missing message_token", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	token := fmt.Sprintf("%d", payload.MessageToken)

	if req.Action == "status" {
		ev := core.StatusEvent(core.LookupByExternalID, token, "delivered")
		ev.Status = core.StatusDelivered
		ev.Policy.IgnoreMissing = true
		return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
	}

	if payload.PhoneNumber == "" {
		return inbound.Parsed{}, core.MalformedPayload("missing phone_number", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	urn, err := telURN(payload.PhoneNumber, ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, payload.Message.Text)
	ev.ExternalID = token
	ev.OccurredOn = unixTime(fmt.Sprintf("%d", payload.Time))
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Viber) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "receive" && len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("Status Updated")
}

package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var chikkaStatuses = core.StatusTable{
	"SENT":   core.StatusSent,
	"FAILED": core.StatusFailed,
}

// Chikka handles the Philippine Chikka gateway. A single endpoint carries
// both directions; message_type says which one a request is.
type Chikka struct {
	noAuth
}

func (Chikka) ChannelType() core.ChannelType { return core.ChannelTypeChikka }

func (Chikka) Route() inbound.Route {
	return inbound.Route{
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (Chikka) MapStatus(raw string) (core.MsgStatus, bool) {
	return chikkaStatuses.Map(raw)
}

func (Chikka) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	switch req.Param("message_type") {
	case "outgoing":
		if err := requireParams(req, ch, "message_id", "status"); err != nil {
			return inbound.Parsed{}, err
		}
		return inbound.Parsed{Events: []core.InboundEvent{
			core.StatusEvent(core.LookupByID, req.Param("message_id"), req.Param("status")),
		}}, nil
	case "incoming":
		if err := requireParams(req, ch, "mobile_number", "request_id", "message"); err != nil {
			return inbound.Parsed{}, err
		}
		urn, err := telURN(req.Param("mobile_number"), ch)
		if err != nil {
			return inbound.Parsed{}, err
		}
		ev := core.NewMessageEvent(urn, req.Param("message"))
		// request_id must be echoed when replying, keep it as the external id
		ev.ExternalID = req.Param("request_id")
		ev.OccurredOn = unixTime(req.Param("timestamp"))
		return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
	default:
		return inbound.Parsed{}, core.MalformedPayload("unknown message_type", map[string]any{
			"channel_uuid": ch.UUID,
			"message_type": req.Param("message_type"),
		})
	}
}

func (Chikka) Ack(_ string, out inbound.Outcome) inbound.Response {
	// both directions share one endpoint, so the outcome says which ack to send
	if len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("Accepted. SMS Status Updated")
}

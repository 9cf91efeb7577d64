package providers

import (
	"context"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/gsm7"
	"github.com/arundhatirjnavada/relay/inbound"
)

// Jasmin handles the Jasmin SMPP gateway. Delivery reports carry boolean-ish
// dlvrd/err flags rather than a status code, receives may be GSM7 coded, and
// every request must be answered with the literal "ACK/Jasmin".
type Jasmin struct {
	noAuth
	noStatusTable
}

func (Jasmin) ChannelType() core.ChannelType { return core.ChannelTypeJasmin }

func (Jasmin) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive", "status"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (Jasmin) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Action == "status" {
		if err := requireParams(req, ch, "id", "dlvrd", "err"); err != nil {
			return inbound.Parsed{}, err
		}
		var status core.MsgStatus
		switch {
		case req.Param("dlvrd") == "1":
			status = core.StatusDelivered
		case req.Param("err") == "1":
			status = core.StatusFailed
		default:
			// intermediate report, ack without touching the message
			ack := inbound.OK("ACK/Jasmin")
			return inbound.Parsed{Response: &ack}, nil
		}
		ev := core.StatusEvent(core.LookupByExternalID, req.Param("id"), "")
		ev.Status = status
		return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
	}

	if err := requireParams(req, ch, "content", "coding", "from", "to", "id"); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(req.Param("from"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	text := req.Param("content")
	if req.Param("coding") == "0" {
		text = gsm7.Decode([]byte(text))
	}
	ev := core.NewMessageEvent(urn, text)
	ev.ExternalID = req.Param("id")
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Jasmin) Ack(string, inbound.Outcome) inbound.Response {
	return inbound.OK("ACK/Jasmin")
}

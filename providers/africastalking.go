package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var africasTalkingStatuses = core.StatusTable{
	"Success":  core.StatusDelivered,
	"Sent":     core.StatusSent,
	"Buffered": core.StatusSent,
	"Rejected": core.StatusFailed,
	"Failed":   core.StatusFailed,
}

// AfricasTalking handles the Africa's Talking SMS API callbacks: "callback"
// delivers inbound messages, "delivery" carries delivery reports keyed by the
// provider's message id.
type AfricasTalking struct {
	noAuth
}

func (AfricasTalking) ChannelType() core.ChannelType { return core.ChannelTypeAfricasTalking }

func (AfricasTalking) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"callback", "delivery"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (AfricasTalking) MapStatus(raw string) (core.MsgStatus, bool) {
	return africasTalkingStatuses.Map(raw)
}

func (AfricasTalking) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Action == "delivery" {
		if err := requireParams(req, ch, "id", "status"); err != nil {
			return inbound.Parsed{}, err
		}
		return inbound.Parsed{Events: []core.InboundEvent{
			core.StatusEvent(core.LookupByExternalID, req.Param("id"), req.Param("status")),
		}}, nil
	}

	if err := requireParams(req, ch, "from", "text"); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(req.Param("from"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, req.Param("text"))
	ev.ExternalID = req.Param("id")
	ev.OccurredOn = parseTimeIn("2006-01-02 15:04:05", req.Param("date"), time.UTC)
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (AfricasTalking) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "callback" && len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("SMS Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("SMS Status Updated")
}

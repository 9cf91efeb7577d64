package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var externalStatuses = core.StatusTable{
	"sent":      core.StatusSent,
	"delivered": core.StatusDelivered,
	"failed":    core.StatusFailed,
}

// External is the generic HTTP gateway adapter: the action segment of the URL
// is the event itself. Several white-label aggregators speak exactly this
// shape under their own channel type, so the adapter is parameterized on it.
type External struct {
	noAuth
	channelType core.ChannelType
}

func NewExternal(channelType core.ChannelType) External {
	return External{channelType: channelType}
}

func (e External) ChannelType() core.ChannelType { return e.channelType }

func (External) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"received", "sent", "delivered", "failed"},
		Lookup:  inbound.LookupUUIDOrAddress,
		Methods: []string{http.MethodGet, http.MethodPost},
	}
}

func (External) MapStatus(raw string) (core.MsgStatus, bool) {
	return externalStatuses.Map(raw)
}

func (e External) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Action == "received" {
		sender := req.Param("from")
		if sender == "" {
			sender = req.Param("sender")
		}
		text := req.Param("text")
		if text == "" && req.HasParam("message") {
			text = req.Param("message")
		}
		if sender == "" {
			return inbound.Parsed{}, core.MalformedPayload("missing required parameters: from", map[string]any{
				"channel_uuid": ch.UUID,
			})
		}
		if text == "" && !req.HasParam("text") && !req.HasParam("message") {
			return inbound.Parsed{}, core.MalformedPayload("missing required parameters: text", map[string]any{
				"channel_uuid": ch.UUID,
			})
		}
		urn, err := telURN(sender, ch)
		if err != nil {
			return inbound.Parsed{}, err
		}
		return inbound.Parsed{Events: []core.InboundEvent{core.NewMessageEvent(urn, text)}}, nil
	}

	if err := requireParams(req, ch, "id"); err != nil {
		return inbound.Parsed{}, err
	}
	return inbound.Parsed{Events: []core.InboundEvent{
		core.StatusEvent(core.LookupByID, req.Param("id"), req.Action),
	}}, nil
}

func (External) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "received" && len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("SMS Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("SMS Status Updated")
}

package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var blackmynaStatuses = core.StatusTable{
	"1":  core.StatusDelivered,
	"2":  core.StatusFailed,
	"8":  core.StatusSent,
	"16": core.StatusFailed,
}

// Blackmyna handles the Blackmyna Nepal gateway. Receives declare the
// destination short code, which must be the channel's own address.
type Blackmyna struct {
	noAuth
}

func (Blackmyna) ChannelType() core.ChannelType { return core.ChannelTypeBlackmyna }

func (Blackmyna) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive", "status"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodGet, http.MethodPost},
	}
}

func (Blackmyna) MapStatus(raw string) (core.MsgStatus, bool) {
	return blackmynaStatuses.Map(raw)
}

func (Blackmyna) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Action == "status" {
		if err := requireParams(req, ch, "id", "status"); err != nil {
			return inbound.Parsed{}, err
		}
		return inbound.Parsed{Events: []core.InboundEvent{
			core.StatusEvent(core.LookupByExternalID, req.Param("id"), req.Param("status")),
		}}, nil
	}

	if err := requireParams(req, ch, "to", "from", "text"); err != nil {
		return inbound.Parsed{}, err
	}
	if err := requireAddress(ch, req.Param("to")); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(req.Param("from"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, req.Param("text"))
	ev.ExternalID = req.Param("smsc")
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Blackmyna) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "receive" && len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("SMS Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("SMS Status Updated")
}

package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var kannelStatuses = core.StatusTable{
	"1":  core.StatusDelivered,
	"2":  core.StatusFailed,
	"4":  core.StatusSent,
	"8":  core.StatusSent,
	"16": core.StatusFailed,
}

// Kannel handles callbacks from a Kannel SMSC gateway. Receive carries the
// sender, text and a unix timestamp; delivery reports use Kannel's bitmask
// status codes.
type Kannel struct {
	noAuth
}

func (Kannel) ChannelType() core.ChannelType { return core.ChannelTypeKannel }

func (Kannel) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive", "status"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodGet, http.MethodPost},
	}
}

func (Kannel) MapStatus(raw string) (core.MsgStatus, bool) {
	return kannelStatuses.Map(raw)
}

func (k Kannel) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	switch req.Action {
	case "status":
		if err := requireParams(req, ch, "id", "status"); err != nil {
			return inbound.Parsed{}, err
		}
		raw := req.Param("status")
		if _, ok := kannelStatuses.Map(raw); !ok {
			// kannel retries 4xx aggressively except on 401
			return inbound.Parsed{}, unrecognizedStatus(raw, http.StatusUnauthorized, ch)
		}
		return inbound.Parsed{Events: []core.InboundEvent{
			core.StatusEvent(core.LookupByID, req.Param("id"), raw),
		}}, nil
	default:
		if err := requireParams(req, ch, "sender", "message", "ts", "id"); err != nil {
			return inbound.Parsed{}, err
		}
		urn, err := telURN(req.Param("sender"), ch)
		if err != nil {
			return inbound.Parsed{}, err
		}
		ev := core.NewMessageEvent(urn, req.Param("message"))
		ev.ExternalID = req.Param("id")
		ev.OccurredOn = unixTime(req.Param("ts"))
		return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
	}
}

func (Kannel) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "status" {
		return inbound.OK("SMS Status Updated")
	}
	if len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("SMS Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("SMS Accepted")
}

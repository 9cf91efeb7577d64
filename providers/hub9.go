package providers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

// Hub9 handles the Indonesian Hub9 gateway. Every request carries the account
// credentials as query parameters and must name the channel's own short code;
// the gateway insists on the literal body "000" as acknowledgement.
type Hub9 struct{}

func (Hub9) ChannelType() core.ChannelType { return core.ChannelTypeHub9 }

func (Hub9) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"received", "delivered"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodGet, http.MethodPost},
	}
}

func (Hub9) Authenticate(_ context.Context, req *inbound.Request, ch core.Channel) error {
	username := ch.ConfigString(core.ConfigUsername)
	password := ch.ConfigString(core.ConfigPassword)
	if username == "" || password == "" {
		return core.AuthFailed("channel has no gateway credentials", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	if req.Param("userid") != username || req.Param("password") != password {
		return core.AuthFailed("invalid gateway credentials", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	return nil
}

// MapStatus: 10 through 12 are delivery confirmations, anything above 20 is a
// terminal failure, the remaining non-negative codes mean accepted upstream.
func (Hub9) MapStatus(raw string) (core.MsgStatus, bool) {
	code, err := strconv.Atoi(raw)
	if err != nil {
		return "", false
	}
	switch {
	case code >= 10 && code <= 12:
		return core.StatusDelivered, true
	case code > 20:
		return core.StatusFailed, true
	case code != -1:
		return core.StatusSent, true
	default:
		return "", false
	}
}

func (h Hub9) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Action == "delivered" {
		if err := requireParams(req, ch, "messageid", "status"); err != nil {
			return inbound.Parsed{}, err
		}
		if _, ok := h.MapStatus(req.Param("status")); !ok {
			// -1 is a keepalive ping, not a report
			resp := inbound.OK("000")
			return inbound.Parsed{Response: &resp}, nil
		}
		return inbound.Parsed{Events: []core.InboundEvent{
			core.StatusEvent(core.LookupByID, req.Param("messageid"), req.Param("status")),
		}}, nil
	}

	if err := requireParams(req, ch, "original", "sendto", "message"); err != nil {
		return inbound.Parsed{}, err
	}
	if err := requireAddress(ch, req.Param("sendto")); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(req.Param("original"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, req.Param("message"))
	ev.ExternalID = req.Param("messageid")
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Hub9) Ack(string, inbound.Outcome) inbound.Response {
	return inbound.OK("000")
}

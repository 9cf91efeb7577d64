package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var nexmoStatuses = core.StatusTable{
	"delivered": core.StatusDelivered,
	"accepted":  core.StatusSent,
	"buffered":  core.StatusSent,
	"expired":   core.StatusFailed,
	"failed":    core.StatusFailed,
}

// Nexmo handles Vonage/Nexmo callbacks. Routes carry the owning account's
// uuid rather than a channel uuid; the channel itself is found by the number
// the gateway delivered to, and the path uuid must match the account uuid
// stored in the channel config. Nexmo's dashboard test button sends requests
// with no destination at all, which must get a friendly 200.
type Nexmo struct{}

func (Nexmo) ChannelType() core.ChannelType { return core.ChannelTypeNexmo }

func (Nexmo) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive", "status"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodGet, http.MethodPost},
	}
}

// ResolveChannel finds the channel by the delivered-to number, trying the
// bare digits and the plus-prefixed form.
func (Nexmo) ResolveChannel(ctx context.Context, req *inbound.Request, store core.ChannelStore) (core.Channel, error) {
	to := req.Param("to")
	if to == "" {
		// answered in Parse, resolve to nothing without failing
		return core.Channel{}, nil
	}
	ch, err := store.GetByAddress(ctx, core.ChannelTypeNexmo, to)
	if err == nil {
		return ch, nil
	}
	return store.GetByAddress(ctx, core.ChannelTypeNexmo, "+"+to)
}

func (Nexmo) Authenticate(_ context.Context, req *inbound.Request, ch core.Channel) error {
	if req.Param("to") == "" {
		return nil
	}
	accountUUID := ch.ConfigString(core.ConfigOrgUUID)
	if accountUUID == "" || req.Lookup.UUID != accountUUID {
		return core.AuthFailed("account uuid does not match channel", map[string]any{
			"channel_uuid": ch.UUID,
			"uuid":         req.Lookup.UUID,
		})
	}
	return nil
}

func (Nexmo) MapStatus(raw string) (core.MsgStatus, bool) {
	return nexmoStatuses.Map(raw)
}

func (Nexmo) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Param("to") == "" {
		ping := inbound.OK("No to parameter, ignoring")
		return inbound.Parsed{Response: &ping}, nil
	}

	if req.Action == "status" {
		if err := requireParams(req, ch, "messageId", "status"); err != nil {
			return inbound.Parsed{}, err
		}
		ev := core.StatusEvent(core.LookupByExternalID, req.Param("messageId"), req.Param("status"))
		// nexmo reports statuses for sends it made before we knew about them
		ev.Policy.IgnoreMissing = true
		return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
	}

	if err := requireParams(req, ch, "msisdn", "messageId", "text"); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(req.Param("msisdn"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, req.Param("text"))
	ev.ExternalID = req.Param("messageId")
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Nexmo) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "receive" && len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("SMS Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("")
}

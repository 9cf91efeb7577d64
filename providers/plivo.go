package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var plivoStatuses = core.StatusTable{
	"queued":      core.StatusWired,
	"sent":        core.StatusSent,
	"delivered":   core.StatusDelivered,
	"undelivered": core.StatusSent,
	"rejected":    core.StatusFailed,
}

// Plivo handles Plivo SMS callbacks. Multipart sends report per-part with a
// ParentMessageUUID pointing at the stored message, so the parent id wins
// when present.
type Plivo struct {
	noAuth
}

func (Plivo) ChannelType() core.ChannelType { return core.ChannelTypePlivo }

func (Plivo) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive", "status"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (Plivo) MapStatus(raw string) (core.MsgStatus, bool) {
	return plivoStatuses.Map(raw)
}

func (Plivo) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Action == "status" {
		if err := requireParams(req, ch, "MessageUUID", "Status", "To"); err != nil {
			return inbound.Parsed{}, err
		}
		if err := requireAddress(ch, req.Param("To")); err != nil {
			return inbound.Parsed{}, err
		}
		externalID := req.Param("MessageUUID")
		if parent := req.Param("ParentMessageUUID"); parent != "" {
			externalID = parent
		}
		return inbound.Parsed{Events: []core.InboundEvent{
			core.StatusEvent(core.LookupByExternalID, externalID, req.Param("Status")),
		}}, nil
	}

	if err := requireParams(req, ch, "From", "To", "Text", "MessageUUID"); err != nil {
		return inbound.Parsed{}, err
	}
	if err := requireAddress(ch, req.Param("To")); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(req.Param("From"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, req.Param("Text"))
	ev.ExternalID = req.Param("MessageUUID")
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Plivo) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "receive" && len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("SMS accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("SMS Status Updated")
}

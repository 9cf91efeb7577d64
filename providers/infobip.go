package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var infobipStatuses = core.StatusTable{
	"DELIVERED":     core.StatusDelivered,
	"SENT":          core.StatusSent,
	"NOT_SENT":      core.StatusFailed,
	"NOT_DELIVERED": core.StatusFailed,
	"REJECTED":      core.StatusFailed,
	"UNDELIVERABLE": core.StatusFailed,
}

type infobipDeliveryReport struct {
	XMLName  xml.Name             `xml:"DeliveryReport"`
	Messages []infobipReportEntry `xml:"message"`
}

type infobipReportEntry struct {
	ID     string `xml:"id,attr"`
	Status string `xml:"status,attr"`
}

// Infobip handles the Infobip gateway: form-encoded receives and XML
// delivery reports that may batch several messages per request.
type Infobip struct {
	noAuth
}

func (Infobip) ChannelType() core.ChannelType { return core.ChannelTypeInfobip }

func (Infobip) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"received", "delivered"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodGet, http.MethodPost},
	}
}

func (Infobip) MapStatus(raw string) (core.MsgStatus, bool) {
	return infobipStatuses.Map(raw)
}

func (Infobip) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Action == "delivered" {
		var report infobipDeliveryReport
		if err := xml.Unmarshal(req.Body, &report); err != nil {
			return inbound.Parsed{}, core.MalformedPayload("invalid delivery report xml", map[string]any{
				"channel_uuid": ch.UUID,
			})
		}
		if len(report.Messages) == 0 {
			return inbound.Parsed{}, core.MalformedPayload("delivery report without messages", map[string]any{
				"channel_uuid": ch.UUID,
			})
		}
		events := make([]core.InboundEvent, 0, len(report.Messages))
		for _, entry := range report.Messages {
			events = append(events, core.StatusEvent(core.LookupByID, entry.ID, entry.Status))
		}
		return inbound.Parsed{Events: events}, nil
	}

	if err := requireParams(req, ch, "sender", "receiver", "text"); err != nil {
		return inbound.Parsed{}, err
	}
	if err := requireAddress(ch, "+"+req.Param("receiver")); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(req.Param("sender"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	return inbound.Parsed{Events: []core.InboundEvent{
		core.NewMessageEvent(urn, req.Param("text")),
	}}, nil
}

func (Infobip) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "received" && len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("SMS Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("SMS Status Updated")
}

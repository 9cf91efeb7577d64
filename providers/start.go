package providers

import (
	"context"
	"encoding/xml"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

const startAckBody = `<answer type="async"><state>Accepted</state></answer>`

type startPayload struct {
	XMLName xml.Name     `xml:"message"`
	Service startService `xml:"service"`
	From    string       `xml:"from"`
	To      string       `xml:"to"`
	Body    string       `xml:"body"`
}

type startService struct {
	Timestamp string `xml:"timestamp,attr"`
	RequestID string `xml:"request_id,attr"`
}

// Start handles the Ukrainian Start Mobile gateway: XML receives answered
// with the gateway's async-accept XML envelope.
type Start struct {
	noAuth
	noStatusTable
}

func (Start) ChannelType() core.ChannelType { return core.ChannelTypeStart }

func (Start) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (Start) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	var payload startPayload
	if err := xml.Unmarshal(req.Body, &payload); err != nil {
		return inbound.Parsed{}, core.MalformedPayload("invalid message xml", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	if payload.From == "" || payload.To == "" {
		return inbound.Parsed{}, core.MalformedPayload("missing from or to", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	if err := requireAddress(ch, payload.To); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(payload.From, ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, payload.Body)
	ev.ExternalID = payload.Service.RequestID
	ev.OccurredOn = unixTime(payload.Service.Timestamp)
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Start) Ack(string, inbound.Outcome) inbound.Response {
	return inbound.XML(http.StatusOK, startAckBody)
}

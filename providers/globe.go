package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

const globeDateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (UTC)"

type globePayload struct {
	InboundSMSMessageList struct {
		InboundSMSMessage []globeMessage `json:"inboundSMSMessage"`
	} `json:"inboundSMSMessageList"`
}

type globeMessage struct {
	DateTime           string `json:"dateTime"`
	DestinationAddress string `json:"destinationAddress"`
	MessageID          string `json:"messageId"`
	Message            string `json:"message"`
	SenderAddress      string `json:"senderAddress"`
}

// Globe handles Globe Labs (Philippines). Messages arrive batched and both
// addresses are prefixed with a literal "tel:".
type Globe struct {
	noAuth
	noStatusTable
}

func (Globe) ChannelType() core.ChannelType { return core.ChannelTypeGlobe }

func (Globe) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (Globe) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	var payload globePayload
	if err := req.DecodeJSON(&payload); err != nil {
		return inbound.Parsed{}, core.MalformedPayload("invalid json payload", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	messages := payload.InboundSMSMessageList.InboundSMSMessage
	if len(messages) == 0 {
		return inbound.Parsed{}, core.MalformedPayload("no messages in payload", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}

	events := make([]core.InboundEvent, 0, len(messages))
	for _, message := range messages {
		destination := strings.TrimPrefix(message.DestinationAddress, "tel:")
		if err := requireAddress(ch, destination); err != nil {
			return inbound.Parsed{}, err
		}
		sender := strings.TrimPrefix(message.SenderAddress, "tel:")
		urn, err := telURN(sender, ch)
		if err != nil {
			return inbound.Parsed{}, err
		}
		ev := core.NewMessageEvent(urn, message.Message)
		ev.ExternalID = message.MessageID
		if occurred, parseErr := time.Parse(globeDateLayout, message.DateTime); parseErr == nil {
			utc := occurred.UTC()
			ev.OccurredOn = &utc
		}
		events = append(events, ev)
	}
	return inbound.Parsed{Events: events}, nil
}

func (Globe) Ack(_ string, out inbound.Outcome) inbound.Response {
	return inbound.OK(fmt.Sprintf("Accepted: %d", len(out.Msgs)))
}

package providers

import (
	"context"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
	"github.com/arundhatirjnavada/relay/urns"
)

type linePayload struct {
	Events []struct {
		Source struct {
			UserID string `json:"userId"`
		} `json:"source"`
		Timestamp int64 `json:"timestamp"`
		Message   struct {
			ID   string `json:"id"`
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"message"`
	} `json:"events"`
}

// Line handles LINE messaging webhooks. Only text events become messages,
// everything else in the batch is skipped.
type Line struct {
	noAuth
	noStatusTable
}

func (Line) ChannelType() core.ChannelType { return core.ChannelTypeLine }

func (Line) Route() inbound.Route {
	return inbound.Route{
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (Line) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	var payload linePayload
	if err := req.DecodeJSON(&payload); err != nil {
		return inbound.Parsed{}, core.MalformedPayload("invalid json payload", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}

	var events []core.InboundEvent
	for _, item := range payload.Events {
		if item.Message.Type != "text" || item.Source.UserID == "" {
			continue
		}
		urn, err := urns.FromLine(item.Source.UserID)
		if err != nil {
			continue
		}
		ev := core.NewMessageEvent(urn.String(), item.Message.Text)
		ev.ExternalID = item.Message.ID
		if item.Timestamp > 0 {
			occurred := millisTime(item.Timestamp)
			ev.OccurredOn = &occurred
		}
		events = append(events, ev)
	}
	if len(events) == 0 {
		ignored := inbound.OK("Ignored")
		return inbound.Parsed{Response: &ignored}, nil
	}
	return inbound.Parsed{Events: events}, nil
}

func (Line) Ack(string, inbound.Outcome) inbound.Response {
	return inbound.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

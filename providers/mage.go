package providers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

// Mage handles notifications from the message mage service: re-enqueueing the
// handler task for an already stored message, and firing follow triggers for
// a newly followed contact. Every request carries a shared token in the
// Authorization header and every success is acked with {"error":null}.
type Mage struct {
	noStatusTable
}

func (Mage) ChannelType() core.ChannelType { return core.ChannelTypeMage }

func (Mage) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"handle_message", "follow_notification"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (Mage) Authenticate(_ context.Context, req *inbound.Request, ch core.Channel) error {
	token := ch.ConfigString(core.ConfigAuthToken)
	if token == "" {
		return core.AuthFailed("channel has no auth token", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	if req.Header("Authorization") != "Token "+token {
		return core.AuthFailed("Incorrect authentication token", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	return nil
}

func (Mage) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Action == "follow_notification" {
		if !positiveInt(req.Param("channel_id")) || !positiveInt(req.Param("contact_urn_id")) {
			return inbound.Parsed{}, core.MalformedPayload("Invalid channel or contact URN id", map[string]any{
				"channel_uuid":   ch.UUID,
				"channel_id":     req.Param("channel_id"),
				"contact_urn_id": req.Param("contact_urn_id"),
			})
		}
		ev := core.InboundEvent{
			Kind:    core.EventTrigger,
			Trigger: core.TriggerFollow,
			// the notification names a stored urn row, not a scheme urn
			URN: "urn_id:" + req.Param("contact_urn_id"),
		}
		return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
	}

	if !positiveInt(req.Param("message_id")) {
		return inbound.Parsed{}, core.MalformedPayload("Invalid message_id", map[string]any{
			"channel_uuid": ch.UUID,
			"message_id":   req.Param("message_id"),
		})
	}
	ev := core.InboundEvent{
		Kind:   core.EventHandleMsg,
		Lookup: core.StatusLookup{Mode: core.LookupByID, Key: req.Param("message_id")},
	}
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Mage) Ack(string, inbound.Outcome) inbound.Response {
	return inbound.JSON(http.StatusOK, map[string]any{"error": nil})
}

func positiveInt(value string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	return err == nil && n > 0
}

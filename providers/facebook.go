package providers

import (
	"context"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
	"github.com/arundhatirjnavada/relay/urns"
)

type facebookEnvelope struct {
	Entry []struct {
		Messaging []facebookMessaging `json:"messaging"`
	} `json:"entry"`
}

type facebookMessaging struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Timestamp int64 `json:"timestamp"`
	Message   *struct {
		MID         string `json:"mid"`
		Text        string `json:"text"`
		IsEcho      bool   `json:"is_echo"`
		Attachments []struct {
			Type    string `json:"type"`
			Payload struct {
				URL string `json:"url"`
			} `json:"payload"`
		} `json:"attachments"`
	} `json:"message"`
	Postback *struct {
		Payload string `json:"payload"`
	} `json:"postback"`
	Delivery *struct {
		MIDs []string `json:"mids"`
	} `json:"delivery"`
}

// Facebook handles Messenger page webhooks. A GET is the platform's
// subscription handshake, verified against the channel's stored token; POSTs
// carry batched messaging envelopes. Page-scoped echoes of our own sends are
// ignored and every envelope must be addressed to the page the channel
// represents.
type Facebook struct {
	noStatusTable
}

func (Facebook) ChannelType() core.ChannelType { return core.ChannelTypeFacebook }

func (Facebook) Route() inbound.Route {
	return inbound.Route{
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodGet, http.MethodPost},
	}
}

func (Facebook) Authenticate(_ context.Context, req *inbound.Request, ch core.Channel) error {
	if req.Method != http.MethodGet {
		return nil
	}
	if req.Param("hub.mode") != "subscribe" {
		return nil
	}
	token := ch.ConfigString(core.ConfigSecret)
	if token == "" || req.Param("hub.verify_token") != token {
		return core.AuthFailed("verify token does not match channel", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	return nil
}

func (Facebook) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Method == http.MethodGet {
		if req.Param("hub.mode") != "subscribe" {
			return inbound.Parsed{}, core.MalformedPayload("unknown hub mode", map[string]any{
				"channel_uuid": ch.UUID,
			})
		}
		// the challenge must be echoed verbatim
		challenge := inbound.OK(req.Param("hub.challenge"))
		return inbound.Parsed{Response: &challenge}, nil
	}

	var envelope facebookEnvelope
	if err := req.DecodeJSON(&envelope); err != nil {
		return inbound.Parsed{}, core.MalformedPayload("invalid json payload", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}

	var events []core.InboundEvent
	for _, entry := range envelope.Entry {
		for _, item := range entry.Messaging {
			if item.Message != nil && item.Message.IsEcho {
				continue
			}
			if item.Recipient.ID != "" && !matchesAddress(ch.Address, item.Recipient.ID) {
				return inbound.Parsed{}, core.AuthFailed("envelope addressed to another page", map[string]any{
					"channel_uuid": ch.UUID,
					"recipient":    item.Recipient.ID,
				})
			}

			switch {
			case item.Delivery != nil:
				for _, mid := range item.Delivery.MIDs {
					ev := core.StatusEvent(core.LookupByExternalID, mid, "delivered")
					ev.Status = core.StatusDelivered
					ev.Policy.IgnoreMissing = true
					events = append(events, ev)
				}
			case item.Postback != nil:
				if item.Postback.Payload != "get_started" {
					continue
				}
				urn, err := urns.FromFacebook(item.Sender.ID)
				if err != nil {
					continue
				}
				events = append(events, core.InboundEvent{
					Kind:    core.EventTrigger,
					URN:     urn.String(),
					Trigger: core.TriggerNewConversation,
				})
			case item.Message != nil:
				urn, err := urns.FromFacebook(item.Sender.ID)
				if err != nil {
					continue
				}
				ev := core.NewMessageEvent(urn.String(), item.Message.Text)
				ev.ExternalID = item.Message.MID
				if item.Timestamp > 0 {
					occurred := millisTime(item.Timestamp)
					ev.OccurredOn = &occurred
				}
				for _, attachment := range item.Message.Attachments {
					if attachment.Payload.URL == "" {
						continue
					}
					ev.Media = append(ev.Media, core.MediaRef{
						ContentType: attachment.Type,
						URL:         attachment.Payload.URL,
					})
				}
				if ev.Text == "" && len(ev.Media) == 0 {
					continue
				}
				events = append(events, ev)
			}
		}
	}
	if len(events) == 0 {
		ignored := inbound.OK("Ignored")
		return inbound.Parsed{Response: &ignored}, nil
	}
	return inbound.Parsed{Events: events}, nil
}

func (Facebook) Ack(string, inbound.Outcome) inbound.Response {
	return inbound.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

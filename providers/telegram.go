package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
	"github.com/arundhatirjnavada/relay/urns"
)

type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		From      struct {
			ID        int64  `json:"id"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
			Username  string `json:"username"`
		} `json:"from"`
		Date     int64  `json:"date"`
		Text     string `json:"text"`
		Location *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"location"`
		Contact *struct {
			PhoneNumber string `json:"phone_number"`
			FirstName   string `json:"first_name"`
			LastName    string `json:"last_name"`
		} `json:"contact"`
	} `json:"message"`
}

// Telegram handles bot webhook updates. Only textual content survives:
// locations become geo references and shared contacts are flattened into
// text. Media that would need a bot API fetch is left out.
type Telegram struct {
	noAuth
	noStatusTable
}

func (Telegram) ChannelType() core.ChannelType { return core.ChannelTypeTelegram }

func (Telegram) Route() inbound.Route {
	return inbound.Route{
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (Telegram) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	var update telegramUpdate
	if err := req.DecodeJSON(&update); err != nil {
		return inbound.Parsed{}, core.MalformedPayload("invalid json payload", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	message := update.Message
	if message == nil || message.From.ID == 0 {
		ignored := inbound.OK("No message, ignored.")
		return inbound.Parsed{Response: &ignored}, nil
	}

	urn, err := urns.FromTelegram(fmt.Sprintf("%d", message.From.ID))
	if err != nil {
		return inbound.Parsed{}, core.MalformedPayload("invalid sender id", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}

	ev := core.NewMessageEvent(urn.String(), message.Text)
	ev.ContactName = telegramName(message.From.FirstName, message.From.LastName, message.From.Username)
	ev.ExternalID = fmt.Sprintf("%d", message.MessageID)
	ev.OccurredOn = unixTime(fmt.Sprintf("%d", message.Date))

	switch {
	case message.Text != "":
	case message.Location != nil:
		geo := fmt.Sprintf("geo:%v,%v", message.Location.Latitude, message.Location.Longitude)
		ev.Text = geo
		ev.Media = []core.MediaRef{{ContentType: "geo", URL: fmt.Sprintf("%v,%v", message.Location.Latitude, message.Location.Longitude)}}
	case message.Contact != nil:
		parts := []string{message.Contact.PhoneNumber}
		if name := strings.TrimSpace(message.Contact.FirstName + " " + message.Contact.LastName); name != "" {
			parts = append(parts, "("+name+")")
		}
		ev.Text = strings.Join(parts, " ")
	default:
		ignored := inbound.OK("No message, ignored.")
		return inbound.Parsed{Response: &ignored}, nil
	}
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Telegram) Ack(_ string, out inbound.Outcome) inbound.Response {
	if len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("Message Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("")
}

func telegramName(first, last, username string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name != "" {
		return name
	}
	return strings.TrimSpace(username)
}

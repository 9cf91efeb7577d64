package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var twilioStatuses = core.StatusTable{
	"sent":      core.StatusSent,
	"delivered": core.StatusDelivered,
	"failed":    core.StatusFailed,
}

// Twilio handles the Twilio API family: the classic per-number integration,
// messaging services, and generic TwiML-speaking gateways. All three share
// the payload shape and the X-Twilio-Signature scheme; they differ only in
// how the channel is addressed, so one adapter covers them parameterized on
// channel type.
type Twilio struct {
	channelType core.ChannelType
}

func NewTwilio(channelType core.ChannelType) Twilio {
	return Twilio{channelType: channelType}
}

func (t Twilio) ChannelType() core.ChannelType { return t.channelType }

func (t Twilio) Route() inbound.Route {
	lookup := inbound.LookupUUID
	if t.channelType == core.ChannelTypeTwilio {
		lookup = inbound.LookupAddress
	}
	return inbound.Route{
		Lookup:  lookup,
		Methods: []string{http.MethodPost},
	}
}

// ResolveChannel for the classic integration finds the channel by the number
// Twilio delivered to.
func (t Twilio) ResolveChannel(ctx context.Context, req *inbound.Request, store core.ChannelStore) (core.Channel, error) {
	if t.channelType != core.ChannelTypeTwilio {
		return store.GetByUUID(ctx, t.channelType, req.Lookup.UUID)
	}
	to := req.Param("To")
	if to == "" {
		return core.Channel{}, core.MalformedPayload("missing To parameter", nil)
	}
	ch, err := store.GetByAddress(ctx, t.channelType, to)
	if err == nil {
		return ch, nil
	}
	return store.GetByAddress(ctx, t.channelType, "+"+to)
}

// Authenticate checks X-Twilio-Signature: HMAC-SHA1 over the full request
// URL concatenated with the sorted form parameters, keyed by the channel's
// auth token, base64 encoded.
func (Twilio) Authenticate(_ context.Context, req *inbound.Request, ch core.Channel) error {
	token := ch.ConfigString(core.ConfigAuthToken)
	if token == "" {
		return core.AuthFailed("channel has no auth token", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	declared := req.Header("X-Twilio-Signature")
	if declared == "" {
		return core.AuthFailed("missing request signature", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	expected := twilioSignature(token, req)
	if !hmac.Equal([]byte(declared), []byte(expected)) {
		return core.AuthFailed("invalid request signature", map[string]any{
			"channel_uuid": ch.UUID,
		})
	}
	return nil
}

func (Twilio) MapStatus(raw string) (core.MsgStatus, bool) {
	return twilioStatuses.Map(raw)
}

func (t Twilio) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Query.Get("action") == "callback" {
		if err := requireParams(req, ch, "id", "SmsStatus"); err != nil {
			return inbound.Parsed{}, err
		}
		return inbound.Parsed{Events: []core.InboundEvent{
			core.StatusEvent(core.LookupByID, req.Query.Get("id"), req.Param("SmsStatus")),
		}}, nil
	}

	if err := requireParams(req, ch, "From", "To"); err != nil {
		return inbound.Parsed{}, err
	}
	if t.channelType != core.ChannelTypeTwilio {
		if err := requireAddress(ch, req.Param("To")); err != nil {
			return inbound.Parsed{}, err
		}
	}
	urn, err := telURN(req.Param("From"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, req.Param("Body"))
	ev.ExternalID = req.Param("MessageSid")
	if numMedia, convErr := strconv.Atoi(req.Param("NumMedia")); convErr == nil {
		for i := 0; i < numMedia; i++ {
			mediaURL := req.Param(fmt.Sprintf("MediaUrl%d", i))
			if mediaURL == "" {
				continue
			}
			ev.Media = append(ev.Media, core.MediaRef{
				ContentType: req.Param(fmt.Sprintf("MediaContentType%d", i)),
				URL:         mediaURL,
			})
		}
	}
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Twilio) Ack(string, inbound.Outcome) inbound.Response {
	return inbound.Response{StatusCode: http.StatusCreated, ContentType: "text/plain", Body: ""}
}

func twilioSignature(token string, req *inbound.Request) string {
	base := req.URL()
	keys := make([]string, 0, len(req.Form))
	for key := range req.Form {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, value := range req.Form[key] {
			base += key + value
		}
	}
	mac := hmac.New(sha1.New, []byte(token))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

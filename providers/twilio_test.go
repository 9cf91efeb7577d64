package providers

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

func twilioChannel() core.Channel {
	return core.Channel{
		ID: 12, UUID: "tw-uuid", Type: core.ChannelTypeTwilio,
		Address: "+14155551212", Country: "US", Active: true, OrgID: 1,
		Config: map[string]any{core.ConfigAuthToken: "shhh-token"},
	}
}

func twilioRequest(params map[string]string) *inbound.Request {
	form := url.Values{}
	for key, value := range params {
		form.Set(key, value)
	}
	return &inbound.Request{
		Method:  http.MethodPost,
		Host:    "relay.example.com",
		Path:    "/c/twilio/",
		Form:    form,
		Query:   url.Values{},
		Headers: map[string]string{},
	}
}

func TestTwilio_SignatureRoundTrip(t *testing.T) {
	adapter := NewTwilio(core.ChannelTypeTwilio)
	req := twilioRequest(map[string]string{
		"To":   "+14155551212",
		"From": "+14155552345",
		"Body": "Hello World",
	})
	req.Headers["X-Twilio-Signature"] = twilioSignature("shhh-token", req)
	if err := adapter.Authenticate(context.Background(), req, twilioChannel()); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestTwilio_SignatureTamperRejected(t *testing.T) {
	adapter := NewTwilio(core.ChannelTypeTwilio)
	req := twilioRequest(map[string]string{
		"To":   "+14155551212",
		"From": "+14155552345",
		"Body": "Hello World",
	})
	req.Headers["X-Twilio-Signature"] = twilioSignature("shhh-token", req)
	req.Form.Set("Body", "tampered")
	err := adapter.Authenticate(context.Background(), req, twilioChannel())
	if !core.IsTextCode(err, core.RelayErrorAuthFailed) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestTwilio_MissingSignatureRejected(t *testing.T) {
	adapter := NewTwilio(core.ChannelTypeTwilio)
	err := adapter.Authenticate(context.Background(), twilioRequest(nil), twilioChannel())
	if !core.IsTextCode(err, core.RelayErrorAuthFailed) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestTwilio_ReceiveWithMedia(t *testing.T) {
	adapter := NewTwilio(core.ChannelTypeTwilio)
	req := twilioRequest(map[string]string{
		"To":                "+14155551212",
		"From":              "+14155552345",
		"Body":              "look at this",
		"MessageSid":        "SM12345",
		"NumMedia":          "2",
		"MediaUrl0":         "https://api.twilio.com/media/0",
		"MediaContentType0": "image/jpeg",
		"MediaUrl1":         "https://api.twilio.com/media/1",
		"MediaContentType1": "audio/mp4",
	})
	parsed, err := adapter.Parse(context.Background(), req, twilioChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	if ev.URN != "tel:+14155552345" || ev.ExternalID != "SM12345" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if len(ev.Media) != 2 || ev.Media[0].ContentType != "image/jpeg" {
		t.Fatalf("unexpected media %+v", ev.Media)
	}
}

func TestTwilio_StatusCallback(t *testing.T) {
	adapter := NewTwilio(core.ChannelTypeTwilio)
	req := twilioRequest(map[string]string{"SmsStatus": "delivered"})
	req.Query.Set("action", "callback")
	req.Query.Set("id", "87")
	parsed, err := adapter.Parse(context.Background(), req, twilioChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	if ev.Kind != core.EventStatusUpdate || ev.Lookup.Key != "87" || ev.RawStatus != "delivered" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if status, ok := adapter.MapStatus(ev.RawStatus); !ok || status != core.StatusDelivered {
		t.Fatalf("unexpected mapped status")
	}
}

func TestTwilio_AckIs201(t *testing.T) {
	resp := NewTwilio(core.ChannelTypeTwilio).Ack("", inbound.Outcome{})
	if resp.StatusCode != http.StatusCreated || resp.Body != "" {
		t.Fatalf("expected empty 201, got %+v", resp)
	}
}

func TestTwiml_RequiresAddressMatch(t *testing.T) {
	adapter := NewTwilio(core.ChannelTypeTwiml)
	ch := twilioChannel()
	ch.Type = core.ChannelTypeTwiml
	req := twilioRequest(map[string]string{
		"To":   "+19998887777",
		"From": "+14155552345",
		"Body": "hi",
	})
	_, err := adapter.Parse(context.Background(), req, ch)
	if !core.IsTextCode(err, core.RelayErrorAuthFailed) {
		t.Fatalf("expected address mismatch rejection, got %v", err)
	}
}

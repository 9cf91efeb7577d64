package providers

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

func mageChannel() core.Channel {
	return core.Channel{
		ID: 17, UUID: "mg-uuid", Type: core.ChannelTypeMage,
		Active: true, OrgID: 1,
		Config: map[string]any{core.ConfigAuthToken: "sesame"},
	}
}

func mageRequest(action, token string, params map[string]string) *inbound.Request {
	form := url.Values{}
	for key, value := range params {
		form.Set(key, value)
	}
	headers := map[string]string{}
	if token != "" {
		headers["Authorization"] = "Token " + token
	}
	return &inbound.Request{
		Method:  http.MethodPost,
		Host:    "relay.example.com",
		Path:    "/c/mage/",
		Form:    form,
		Headers: headers,
		Action:  action,
	}
}

func TestMage_AuthenticateToken(t *testing.T) {
	ok := mageRequest("handle_message", "sesame", nil)
	if err := (Mage{}).Authenticate(context.Background(), ok, mageChannel()); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}

	err := Mage{}.Authenticate(context.Background(), mageRequest("handle_message", "wrong", nil), mageChannel())
	if !core.IsTextCode(err, core.RelayErrorAuthFailed) {
		t.Fatalf("wrong token must fail auth, got %v", err)
	}

	err = Mage{}.Authenticate(context.Background(), mageRequest("handle_message", "", nil), mageChannel())
	if !core.IsTextCode(err, core.RelayErrorAuthFailed) {
		t.Fatalf("missing header must fail auth, got %v", err)
	}

	noToken := mageChannel()
	noToken.Config = nil
	err = Mage{}.Authenticate(context.Background(), mageRequest("handle_message", "sesame", nil), noToken)
	if !core.IsTextCode(err, core.RelayErrorAuthFailed) {
		t.Fatalf("unconfigured channel must fail auth, got %v", err)
	}
}

func TestMage_HandleMessage(t *testing.T) {
	parsed, err := Mage{}.Parse(context.Background(), mageRequest("handle_message", "sesame", map[string]string{
		"message_id": "4321",
	}), mageChannel())
	if err != nil || len(parsed.Events) != 1 {
		t.Fatalf("parse: %+v %v", parsed, err)
	}
	ev := parsed.Events[0]
	if ev.Kind != core.EventHandleMsg || ev.Lookup.Mode != core.LookupByID || ev.Lookup.Key != "4321" {
		t.Fatalf("unexpected event %+v", ev)
	}

	for _, bad := range []string{"", "abc", "-1", "0"} {
		_, err := Mage{}.Parse(context.Background(), mageRequest("handle_message", "sesame", map[string]string{
			"message_id": bad,
		}), mageChannel())
		if !core.IsTextCode(err, core.RelayErrorMalformedPayload) {
			t.Fatalf("message_id %q must be rejected, got %v", bad, err)
		}
	}
}

func TestMage_FollowNotification(t *testing.T) {
	parsed, err := Mage{}.Parse(context.Background(), mageRequest("follow_notification", "sesame", map[string]string{
		"channel_id":     "5",
		"contact_urn_id": "88",
	}), mageChannel())
	if err != nil || len(parsed.Events) != 1 {
		t.Fatalf("parse: %+v %v", parsed, err)
	}
	ev := parsed.Events[0]
	if ev.Kind != core.EventTrigger || ev.Trigger != core.TriggerFollow || ev.URN != "urn_id:88" {
		t.Fatalf("unexpected event %+v", ev)
	}

	_, err = Mage{}.Parse(context.Background(), mageRequest("follow_notification", "sesame", map[string]string{
		"channel_id":     "5",
		"contact_urn_id": "nope",
	}), mageChannel())
	if !core.IsTextCode(err, core.RelayErrorMalformedPayload) {
		t.Fatalf("bad urn id must be rejected, got %v", err)
	}
}

func TestMage_AckIsNullErrorJSON(t *testing.T) {
	resp := Mage{}.Ack("handle_message", inbound.Outcome{})
	if resp.StatusCode != http.StatusOK || resp.ContentType != "application/json" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Body != `{"error":null}` {
		t.Fatalf("unexpected ack body %q", resp.Body)
	}
}

package providers

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

func facebookChannel() core.Channel {
	return core.Channel{
		ID: 14, UUID: "fb-uuid", Type: core.ChannelTypeFacebook,
		Address: "1234567890", Active: true, OrgID: 1,
		Config: map[string]any{core.ConfigSecret: "fb-verify-secret"},
	}
}

func facebookVerifyRequest(token string) *inbound.Request {
	query := url.Values{}
	query.Set("hub.mode", "subscribe")
	query.Set("hub.verify_token", token)
	query.Set("hub.challenge", "challenge-123")
	return &inbound.Request{Method: http.MethodGet, Query: query}
}

func TestFacebook_SubscriptionVerify(t *testing.T) {
	adapter := Facebook{}
	req := facebookVerifyRequest("fb-verify-secret")
	if err := adapter.Authenticate(context.Background(), req, facebookChannel()); err != nil {
		t.Fatalf("valid verify token rejected: %v", err)
	}
	parsed, err := adapter.Parse(context.Background(), req, facebookChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Response == nil || parsed.Response.Body != "challenge-123" {
		t.Fatalf("challenge must be echoed verbatim, got %+v", parsed.Response)
	}
}

func TestFacebook_BadVerifyToken(t *testing.T) {
	err := Facebook{}.Authenticate(context.Background(), facebookVerifyRequest("wrong"), facebookChannel())
	if !core.IsTextCode(err, core.RelayErrorAuthFailed) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestFacebook_ReceiveMessage(t *testing.T) {
	body := `{"entry": [{"messaging": [{
		"sender": {"id": "5678"},
		"recipient": {"id": "1234567890"},
		"timestamp": 1459991487970,
		"message": {"mid": "mid.123", "text": "hello"}
	}]}]}`
	parsed, err := Facebook{}.Parse(context.Background(),
		&inbound.Request{Method: http.MethodPost, Body: []byte(body)}, facebookChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	if ev.URN != "facebook:5678" || ev.Text != "hello" || ev.ExternalID != "mid.123" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestFacebook_EchoIgnored(t *testing.T) {
	body := `{"entry": [{"messaging": [{
		"sender": {"id": "1234567890"},
		"recipient": {"id": "5678"},
		"message": {"mid": "mid.echo", "text": "our own send", "is_echo": true}
	}]}]}`
	parsed, err := Facebook{}.Parse(context.Background(),
		&inbound.Request{Method: http.MethodPost, Body: []byte(body)}, facebookChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Response == nil || len(parsed.Events) != 0 {
		t.Fatalf("echo must produce no events, got %+v", parsed)
	}
}

func TestFacebook_WrongPageRejected(t *testing.T) {
	body := `{"entry": [{"messaging": [{
		"sender": {"id": "5678"},
		"recipient": {"id": "another-page"},
		"message": {"mid": "mid.123", "text": "hello"}
	}]}]}`
	_, err := Facebook{}.Parse(context.Background(),
		&inbound.Request{Method: http.MethodPost, Body: []byte(body)}, facebookChannel())
	if !core.IsTextCode(err, core.RelayErrorAuthFailed) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestFacebook_DeliveryMids(t *testing.T) {
	body := `{"entry": [{"messaging": [{
		"recipient": {"id": "1234567890"},
		"delivery": {"mids": ["mid.a", "mid.b"]}
	}]}]}`
	parsed, err := Facebook{}.Parse(context.Background(),
		&inbound.Request{Method: http.MethodPost, Body: []byte(body)}, facebookChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Events) != 2 {
		t.Fatalf("expected two status events, got %d", len(parsed.Events))
	}
	for _, ev := range parsed.Events {
		if ev.Status != core.StatusDelivered || !ev.Policy.IgnoreMissing {
			t.Fatalf("unexpected status event %+v", ev)
		}
	}
}

func TestFacebook_PostbackTrigger(t *testing.T) {
	body := `{"entry": [{"messaging": [{
		"sender": {"id": "5678"},
		"recipient": {"id": "1234567890"},
		"postback": {"payload": "get_started"}
	}]}]}`
	parsed, err := Facebook{}.Parse(context.Background(),
		&inbound.Request{Method: http.MethodPost, Body: []byte(body)}, facebookChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	if ev.Kind != core.EventTrigger || ev.Trigger != core.TriggerNewConversation {
		t.Fatalf("unexpected event %+v", ev)
	}
}

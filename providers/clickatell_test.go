package providers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/arundhatirjnavada/relay/core"
)

func clickatellChannel() core.Channel {
	return core.Channel{
		ID: 11, UUID: "ct-uuid", Type: core.ChannelTypeClickatell,
		Country: "US", Active: true, OrgID: 1,
		Config: map[string]any{core.ConfigAPIID: "12345"},
	}
}

func TestClickatell_AuthByAPIID(t *testing.T) {
	req := formRequest("receive", map[string]string{"api_id": "12345"})
	if err := (Clickatell{}).Authenticate(context.Background(), req, clickatellChannel()); err != nil {
		t.Fatalf("matching api_id rejected: %v", err)
	}

	req = formRequest("receive", map[string]string{"api_id": "99999"})
	err := Clickatell{}.Authenticate(context.Background(), req, clickatellChannel())
	if !core.IsTextCode(err, core.RelayErrorAuthFailed) {
		t.Fatalf("expected auth failure, got %v", err)
	}
}

func TestClickatell_PingGets200(t *testing.T) {
	parsed, err := Clickatell{}.Parse(context.Background(), formRequest("receive", nil), clickatellChannel())
	if err != nil {
		t.Fatalf("ping must not error: %v", err)
	}
	if parsed.Response == nil || parsed.Response.StatusCode != http.StatusOK {
		t.Fatalf("ping must short-circuit with 200, got %+v", parsed)
	}

	parsed, err = Clickatell{}.Parse(context.Background(), formRequest("status", nil), clickatellChannel())
	if err != nil || parsed.Response == nil {
		t.Fatalf("status ping must short-circuit, got %+v %v", parsed, err)
	}
}

func TestClickatell_ReceiveTimestampIsUTCPlus2(t *testing.T) {
	req := formRequest("receive", map[string]string{
		"api_id":    "12345",
		"from":      "250788383383",
		"text":      "Hello",
		"timestamp": "2014-10-12 07:38:00",
		"moMsgId":   "id1234",
	})
	parsed, err := Clickatell{}.Parse(context.Background(), req, clickatellChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	want := time.Date(2014, 10, 12, 5, 38, 0, 0, time.UTC)
	if ev.OccurredOn == nil || !ev.OccurredOn.Equal(want) {
		t.Fatalf("expected %v, got %v", want, ev.OccurredOn)
	}
	if ev.ExternalID != "id1234" {
		t.Fatalf("unexpected external id %q", ev.ExternalID)
	}
}

func TestClickatell_CharsetDecoding(t *testing.T) {
	// "mexico" in UTF-16BE bytes smuggled through the form encoding
	utf16be := "\x00m\x00e\x00x\x00i\x00c\x00o"
	if got := decodeClickatellText(utf16be, "UTF-16BE"); got != "mexico" {
		t.Fatalf("utf-16be decode: %q", got)
	}
	// 0xE9 is e-acute in latin-1
	if got := decodeClickatellText("caf\xe9", "ISO-8859-1"); got != "café" {
		t.Fatalf("latin-1 decode: %q", got)
	}
	if got := decodeClickatellText("plain", ""); got != "plain" {
		t.Fatalf("default charset must pass through: %q", got)
	}
}

func TestClickatell_UnknownStatusIs401(t *testing.T) {
	req := formRequest("status", map[string]string{"apiMsgId": "id1234", "status": "019"})
	_, err := Clickatell{}.Parse(context.Background(), req, clickatellChannel())
	if !core.IsTextCode(err, core.RelayErrorStatusUnknown) {
		t.Fatalf("expected unknown status error, got %v", err)
	}
	mapped := core.RelayErrorMapper(err)
	if mapped.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", mapped.Code)
	}
	if mapped.Message != "Unrecognized status code: '019', ignoring message." {
		t.Fatalf("unexpected message %q", mapped.Message)
	}
}

func TestClickatell_StatusTable(t *testing.T) {
	cases := map[string]core.MsgStatus{
		"002": core.StatusWired,
		"003": core.StatusSent,
		"004": core.StatusDelivered,
		"005": core.StatusFailed,
	}
	for raw, want := range cases {
		got, ok := Clickatell{}.MapStatus(raw)
		if !ok || got != want {
			t.Fatalf("status %q: expected %s, got %s ok=%v", raw, want, got, ok)
		}
	}
	if _, ok := (Clickatell{}).MapStatus("999"); ok {
		t.Fatalf("unknown code must not map")
	}
}

package providers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

func TestNewRegistry_AllAdaptersRegister(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	types := registry.Types()
	if len(types) != len(All()) {
		t.Fatalf("expected %d channel types, got %d", len(All()), len(types))
	}
	for _, channelType := range []core.ChannelType{
		core.ChannelTypeKannel, core.ChannelTypeTwilioMessaging,
		core.ChannelTypeYo, core.ChannelTypeVumiUSSD, core.ChannelTypeZenvia,
	} {
		if _, ok := registry.Get(channelType); !ok {
			t.Fatalf("missing adapter for %s", channelType)
		}
	}
}

func TestExternal_ActionIsTheStatus(t *testing.T) {
	adapter := NewExternal(core.ChannelTypeExternal)
	req := formRequest("delivered", map[string]string{"id": "31337"})
	parsed, err := adapter.Parse(context.Background(), req, kannelChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	if ev.Lookup.Key != "31337" || ev.RawStatus != "delivered" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if status, ok := adapter.MapStatus("delivered"); !ok || status != core.StatusDelivered {
		t.Fatalf("action must map through the status table")
	}
}

func TestExternal_ReceiveAcceptsAliases(t *testing.T) {
	adapter := NewExternal(core.ChannelTypeShaqodoon)
	req := formRequest("received", map[string]string{"sender": "+252622123456", "message": "salaam"})
	parsed, err := adapter.Parse(context.Background(), req, core.Channel{
		ID: 2, Country: "SO", Active: true, OrgID: 1, Type: core.ChannelTypeShaqodoon,
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Events[0].URN != "tel:+252622123456" || parsed.Events[0].Text != "salaam" {
		t.Fatalf("unexpected event %+v", parsed.Events[0])
	}
}

func TestHub9_CredentialsAndRanges(t *testing.T) {
	ch := core.Channel{
		ID: 3, UUID: "h9", Type: core.ChannelTypeHub9, Address: "1234",
		Country: "ID", Active: true, OrgID: 1,
		Config: map[string]any{core.ConfigUsername: "acc", core.ConfigPassword: "pw"},
	}
	req := formRequest("received", map[string]string{"userid": "acc", "password": "wrong"})
	err := Hub9{}.Authenticate(context.Background(), req, ch)
	if !core.IsTextCode(err, core.RelayErrorAuthFailed) {
		t.Fatalf("expected auth failure, got %v", err)
	}

	cases := map[string]core.MsgStatus{
		"10": core.StatusDelivered,
		"12": core.StatusDelivered,
		"21": core.StatusFailed,
		"1":  core.StatusSent,
	}
	for raw, want := range cases {
		got, ok := Hub9{}.MapStatus(raw)
		if !ok || got != want {
			t.Fatalf("status %q: expected %s, got %s ok=%v", raw, want, got, ok)
		}
	}
	if _, ok := (Hub9{}).MapStatus("-1"); ok {
		t.Fatalf("-1 is a ping, not a status")
	}
	if resp := (Hub9{}).Ack("received", inbound.Outcome{}); resp.Body != "000" {
		t.Fatalf("hub9 must ack with 000, got %q", resp.Body)
	}
}

func TestNexmo_PingAndResolution(t *testing.T) {
	adapter := Nexmo{}
	parsed, err := adapter.Parse(context.Background(), formRequest("receive", nil), core.Channel{})
	if err != nil {
		t.Fatalf("ping must not error: %v", err)
	}
	if parsed.Response == nil || parsed.Response.Body != "No to parameter, ignoring" {
		t.Fatalf("unexpected ping response %+v", parsed.Response)
	}

	store := &addressStore{channel: core.Channel{ID: 4, Address: "+250788123123", Active: true, OrgID: 1}}
	req := formRequest("receive", map[string]string{"to": "250788123123"})
	if _, err := adapter.ResolveChannel(context.Background(), req, store); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if store.calls != 2 || store.last != "+250788123123" {
		t.Fatalf("expected plus-prefixed retry, got %d calls, last %q", store.calls, store.last)
	}
}

type addressStore struct {
	channel core.Channel
	calls   int
	last    string
}

func (s *addressStore) GetByUUID(context.Context, core.ChannelType, string) (core.Channel, error) {
	return core.Channel{}, core.ChannelNotFound("not found", nil)
}

func (s *addressStore) GetByAddress(_ context.Context, _ core.ChannelType, address string) (core.Channel, error) {
	s.calls++
	s.last = address
	if address == s.channel.Address {
		return s.channel, nil
	}
	return core.Channel{}, core.ChannelNotFound("not found", nil)
}

func TestJasmin_GSM7Receive(t *testing.T) {
	req := formRequest("receive", map[string]string{
		"content": "Hello",
		"coding":  "0",
		"from":    "250788383383",
		"to":      "1234",
		"id":      "jasmin-ext",
	})
	ch := core.Channel{ID: 6, Country: "RW", Active: true, OrgID: 1, Type: core.ChannelTypeJasmin}
	parsed, err := Jasmin{}.Parse(context.Background(), req, ch)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Events[0].Text != "Hello" || parsed.Events[0].ExternalID != "jasmin-ext" {
		t.Fatalf("unexpected event %+v", parsed.Events[0])
	}
	if resp := (Jasmin{}).Ack("receive", inbound.Outcome{}); resp.Body != "ACK/Jasmin" {
		t.Fatalf("jasmin ack must be ACK/Jasmin, got %q", resp.Body)
	}
}

func TestJasmin_StatusFlags(t *testing.T) {
	ch := core.Channel{ID: 6, Active: true, OrgID: 1, Type: core.ChannelTypeJasmin}
	cases := []struct {
		dlvrd, errFlag string
		want           core.MsgStatus
	}{
		{"1", "0", core.StatusDelivered},
		{"0", "1", core.StatusFailed},
		{"0", "0", core.StatusSent},
	}
	for _, tc := range cases {
		req := formRequest("status", map[string]string{"id": "e", "dlvrd": tc.dlvrd, "err": tc.errFlag})
		parsed, err := Jasmin{}.Parse(context.Background(), req, ch)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if parsed.Events[0].Status != tc.want {
			t.Fatalf("dlvrd=%s err=%s: expected %s, got %s", tc.dlvrd, tc.errFlag, tc.want, parsed.Events[0].Status)
		}
	}
}

func TestZenvia_ReceiveDecodesLatin1AndLocalTime(t *testing.T) {
	req := formRequest("receive", map[string]string{
		"id":   "z-1",
		"from": "5511996458779",
		"msg":  "ol\xe1 mundo",
		"date": "25/08/2014 14:20:00",
	})
	ch := core.Channel{ID: 7, Country: "BR", Active: true, OrgID: 1, Type: core.ChannelTypeZenvia}
	parsed, err := Zenvia{}.Parse(context.Background(), req, ch)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	if ev.Text != "olá mundo" {
		t.Fatalf("latin-1 text not decoded: %q", ev.Text)
	}
	want := time.Date(2014, 8, 25, 17, 20, 0, 0, time.UTC)
	if ev.OccurredOn == nil || !ev.OccurredOn.Equal(want) {
		t.Fatalf("expected %v, got %v", want, ev.OccurredOn)
	}
}

func TestZenvia_StatusFallsBackToFailed(t *testing.T) {
	if status, ok := (Zenvia{}).MapStatus("120"); !ok || status != core.StatusDelivered {
		t.Fatalf("120 must be delivered")
	}
	if status, ok := (Zenvia{}).MapStatus("111"); !ok || status != core.StatusSent {
		t.Fatalf("111 must be sent")
	}
	if status, ok := (Zenvia{}).MapStatus("131"); !ok || status != core.StatusFailed {
		t.Fatalf("other codes must fail the message")
	}
}

func TestTelegram_NoContentIgnored(t *testing.T) {
	body := `{"update_id": 1, "message": {"message_id": 2, "from": {"id": 3, "first_name": "Nic"}, "date": 1454119029, "sticker": {}}}`
	parsed, err := Telegram{}.Parse(context.Background(),
		&inbound.Request{Method: http.MethodPost, Body: []byte(body)}, core.Channel{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Response == nil || parsed.Response.Body != "No message, ignored." {
		t.Fatalf("unexpected response %+v", parsed.Response)
	}
}

func TestTelegram_LocationBecomesGeo(t *testing.T) {
	body := `{"update_id": 1, "message": {"message_id": 2, "from": {"id": 3, "username": "nicp"}, "date": 1454119029, "location": {"latitude": -2.89, "longitude": 23.94}}}`
	parsed, err := Telegram{}.Parse(context.Background(),
		&inbound.Request{Method: http.MethodPost, Body: []byte(body)}, core.Channel{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	if ev.URN != "telegram:3" || ev.ContactName != "nicp" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Text != "geo:-2.89,23.94" || len(ev.Media) != 1 {
		t.Fatalf("unexpected geo flattening %+v", ev)
	}
}

package providers

import (
	"context"
	"net/http"
	"testing"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

func vumiChannel() core.Channel {
	return core.Channel{
		ID: 13, UUID: "vm-uuid", Type: core.ChannelTypeVumi,
		Country: "ZA", Active: true, OrgID: 1,
	}
}

func vumiRequest(action, body string) *inbound.Request {
	return &inbound.Request{
		Method: http.MethodPost,
		Action: action,
		Body:   []byte(body),
	}
}

func TestVumi_AckBecomesSent(t *testing.T) {
	adapter := NewVumi(core.ChannelTypeVumi)
	parsed, err := adapter.Parse(context.Background(), vumiRequest("event",
		`{"user_message_id": "ext-1", "event_type": "ack"}`), vumiChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	if ev.Status != core.StatusSent || ev.Lookup.Key != "ext-1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestVumi_FailedDeliveryReportIgnored(t *testing.T) {
	adapter := NewVumi(core.ChannelTypeVumi)
	parsed, err := adapter.Parse(context.Background(), vumiRequest("event",
		`{"user_message_id": "ext-1", "event_type": "delivery_report", "delivery_status": "failed"}`), vumiChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	if !ev.Policy.IgnoreFailed {
		t.Fatalf("failed report must carry the ignore policy: %+v", ev)
	}
}

func TestVumi_DeliveredRequiresWired(t *testing.T) {
	adapter := NewVumi(core.ChannelTypeVumi)
	parsed, err := adapter.Parse(context.Background(), vumiRequest("event",
		`{"user_message_id": "ext-1", "event_type": "delivery_report", "delivery_status": "delivered"}`), vumiChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	if ev.Status != core.StatusDelivered || !ev.Policy.DeliverRequiresWired {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestVumi_UnknownAddressNackStopsContact(t *testing.T) {
	adapter := NewVumi(core.ChannelTypeVumi)
	parsed, err := adapter.Parse(context.Background(), vumiRequest("event",
		`{"user_message_id": "ext-1", "event_type": "nack", "nack_reason": "Unknown address."}`), vumiChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(parsed.Events) != 2 {
		t.Fatalf("expected fail + stop events, got %d", len(parsed.Events))
	}
	if parsed.Events[0].Status != core.StatusFailed {
		t.Fatalf("first event must fail the message: %+v", parsed.Events[0])
	}
	stop := parsed.Events[1]
	if stop.Kind != core.EventStopContact || stop.Lookup.Key != "ext-1" {
		t.Fatalf("unexpected stop event %+v", stop)
	}
}

func TestVumi_USSDSessionCloseIsInterrupted(t *testing.T) {
	adapter := NewVumi(core.ChannelTypeVumiUSSD)
	parsed, err := adapter.Parse(context.Background(), vumiRequest("receive",
		`{"message_id": "m-1", "from_addr": "+27817770000", "content": "*bye*", "session_event": "close", "timestamp": "2014-10-12 07:38:00.000000"}`), vumiChannel())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := parsed.Events[0]
	if ev.InitialStatus != core.StatusInterrupted {
		t.Fatalf("session close must store an interrupted message: %+v", ev)
	}
	if ev.ExternalID != "m-1" || ev.URN != "tel:+27817770000" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

package inbound

import (
	"net/url"
	"testing"
)

func TestRequestURL_PreservesRawQuery(t *testing.T) {
	raw := "zeta=1&alpha=a%20b&alpha=c"
	query, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("parse query: %v", err)
	}
	req := &Request{
		Host:     "relay.example.com",
		Path:     "/c/twilio/status/",
		Query:    query,
		RawQuery: raw,
	}
	// gateways sign the bytes they sent; Encode would sort zeta after alpha
	// and re-escape the space as a plus
	want := "https://relay.example.com/c/twilio/status/?" + raw
	if got := req.URL(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRequestURL_FallsBackToEncodedQuery(t *testing.T) {
	req := &Request{
		Host:  "relay.example.com",
		Path:  "/c/twilio/status/",
		Query: url.Values{"id": []string{"42"}},
	}
	if got := req.URL(); got != "https://relay.example.com/c/twilio/status/?id=42" {
		t.Fatalf("unexpected url %q", got)
	}

	req.Query = nil
	if got := req.URL(); got != "https://relay.example.com/c/twilio/status/" {
		t.Fatalf("unexpected url %q", got)
	}
}

package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
	"github.com/arundhatirjnavada/relay/urns"
)

// requireParams fails the request when any of the named form/query parameters
// is missing or empty. One bad field fails the whole payload.
func requireParams(req *inbound.Request, ch core.Channel, keys ...string) error {
	var missing []string
	for _, key := range keys {
		if req.Param(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return core.MalformedPayload(
			fmt.Sprintf("missing required parameters: %s", strings.Join(missing, ", ")),
			map[string]any{
				"channel_uuid": ch.UUID,
				"missing":      strings.Join(missing, ","),
			},
		)
	}
	return nil
}

// matchesAddress compares a declared gateway address against the channel's,
// tolerating a missing or extra leading plus. Gateways disagree on whether
// short codes and MSISDNs carry one.
func matchesAddress(channelAddress, declared string) bool {
	a := strings.TrimSpace(channelAddress)
	b := strings.TrimSpace(declared)
	if a == "" || b == "" {
		return false
	}
	return strings.TrimPrefix(a, "+") == strings.TrimPrefix(b, "+")
}

// requireAddress rejects callbacks that name a different channel address than
// the one routed to. A mismatch is an authentication failure, not a parse
// failure: the payload claims an identity the channel does not have.
func requireAddress(ch core.Channel, declared string) error {
	if matchesAddress(ch.Address, declared) {
		return nil
	}
	return core.AuthFailed(
		fmt.Sprintf("declared address %q does not match channel", declared),
		map[string]any{
			"channel_uuid": ch.UUID,
			"declared":     declared,
		},
	)
}

// telURN normalizes a phone number using the channel's country as the hint.
func telURN(raw string, ch core.Channel) (string, error) {
	urn, err := urns.FromTel(raw, ch.Country)
	if err != nil {
		return "", core.MalformedPayload(
			fmt.Sprintf("invalid phone number %q", raw),
			map[string]any{"channel_uuid": ch.UUID},
		)
	}
	return urn.String(), nil
}

// parseTimeIn parses value with layout in loc, returning nil on failure so
// callers fall back to the receive time instead of rejecting the payload.
func parseTimeIn(layout, value string, loc *time.Location) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}

// unixTime converts an epoch-seconds string, fractional part allowed.
func unixTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	var seconds float64
	if _, err := fmt.Sscanf(value, "%f", &seconds); err != nil {
		return nil
	}
	t := time.Unix(int64(seconds), int64((seconds-float64(int64(seconds)))*1e9)).UTC()
	return &t
}

// millisTime converts epoch milliseconds, the unit the chat platforms use.
func millisTime(millis int64) time.Time {
	return time.Unix(millis/1000, (millis%1000)*int64(time.Millisecond)).UTC()
}

// unrecognizedStatus reports a raw status code missing from the provider's
// table, carrying the HTTP code the gateway expects back for it. Most
// gateways take a 400, a few retry forever unless told 401.
func unrecognizedStatus(raw string, httpCode int, ch core.Channel) error {
	return goerrors.New(
		fmt.Sprintf("Unrecognized status code: '%s', ignoring message.", raw),
		goerrors.CategoryBadInput,
	).WithCode(httpCode).WithTextCode(core.RelayErrorStatusUnknown).WithMetadata(map[string]any{
		"channel_uuid": ch.UUID,
		"raw_status":   raw,
	})
}

// noAuth is embedded by adapters whose gateway offers no verifiable
// credential on the callback itself.
type noAuth struct{}

func (noAuth) Authenticate(context.Context, *inbound.Request, core.Channel) error { return nil }

// noStatusTable is embedded by receive-only adapters.
type noStatusTable struct{}

func (noStatusTable) MapStatus(string) (core.MsgStatus, bool) { return "", false }

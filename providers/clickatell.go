package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/text/encoding/unicode"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var clickatellStatuses = core.StatusTable{
	"001": core.StatusFailed,
	"002": core.StatusWired,
	"003": core.StatusSent,
	"004": core.StatusDelivered,
	"005": core.StatusFailed,
	"006": core.StatusFailed,
	"007": core.StatusFailed,
	"008": core.StatusWired,
	"009": core.StatusFailed,
	"010": core.StatusFailed,
	"011": core.StatusWired,
	"012": core.StatusFailed,
	"014": core.StatusFailed,
}

// clickatell timestamps are wall clock at UTC+2 regardless of the channel
var clickatellLocation = time.FixedZone("GMT-2", 2*3600)

// Clickatell handles the Clickatell gateway. Every callback names the API id
// it was provisioned under; a mismatch is an authentication failure. The
// gateway also probes endpoints with parameterless pings that must get a 200.
type Clickatell struct{}

func (Clickatell) ChannelType() core.ChannelType { return core.ChannelTypeClickatell }

func (Clickatell) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive", "status"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodGet, http.MethodPost},
	}
}

func (Clickatell) Authenticate(_ context.Context, req *inbound.Request, ch core.Channel) error {
	apiID := ch.ConfigString(core.ConfigAPIID)
	declared := req.Param("api_id")
	if declared == "" {
		// pings carry no parameters at all; Parse answers them
		return nil
	}
	if apiID == "" || declared != apiID {
		return core.AuthFailed("api_id does not match channel", map[string]any{
			"channel_uuid": ch.UUID,
			"api_id":       declared,
		})
	}
	return nil
}

func (Clickatell) MapStatus(raw string) (core.MsgStatus, bool) {
	return clickatellStatuses.Map(raw)
}

func (c Clickatell) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Action == "status" {
		if req.Param("apiMsgId") == "" || req.Param("status") == "" {
			ping := inbound.OK("")
			return inbound.Parsed{Response: &ping}, nil
		}
		raw := req.Param("status")
		if _, ok := clickatellStatuses.Map(raw); !ok {
			// like kannel, clickatell only backs off on a 401
			return inbound.Parsed{}, unrecognizedStatus(raw, http.StatusUnauthorized, ch)
		}
		return inbound.Parsed{Events: []core.InboundEvent{
			core.StatusEvent(core.LookupByExternalID, req.Param("apiMsgId"), raw),
		}}, nil
	}

	if req.Param("from") == "" || !req.HasParam("text") {
		ping := inbound.OK("")
		return inbound.Parsed{Response: &ping}, nil
	}
	urn, err := telURN(req.Param("from"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, decodeClickatellText(req.Param("text"), req.Param("charset")))
	ev.ExternalID = req.Param("moMsgId")
	ev.OccurredOn = parseTimeIn("2006-01-02 15:04:05", req.Param("timestamp"), clickatellLocation)
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Clickatell) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "receive" && len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("SMS Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("SMS Status Updated")
}

// decodeClickatellText undoes the gateway's charset quirks: text may arrive
// as UTF-16BE or ISO-8859-1 bytes smuggled through the form encoding.
func decodeClickatellText(text, charset string) string {
	switch charset {
	case "UTF-16BE":
		decoded, err := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder().String(text)
		if err != nil {
			return text
		}
		return decoded
	case "ISO-8859-1":
		return latin1(text)
	default:
		return text
	}
}

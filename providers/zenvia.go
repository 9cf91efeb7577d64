package providers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

// zenviaLocation is the gateway's wall clock. The tz database entry is
// preferred; the fixed offset keeps us working without one.
var zenviaLocation = func() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*3600)
}()

// Zenvia handles the Brazilian Zenvia gateway. Payloads arrive ISO-8859-1
// encoded and dates are local Sao Paulo time in dd/mm/yyyy order.
type Zenvia struct {
	noAuth
}

func (Zenvia) ChannelType() core.ChannelType { return core.ChannelTypeZenvia }

func (Zenvia) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive", "status"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodGet, http.MethodPost},
	}
}

// MapStatus: 120 is delivered, 111 is sent at the operator, every other
// code Zenvia documents is a terminal failure.
func (Zenvia) MapStatus(raw string) (core.MsgStatus, bool) {
	switch raw {
	case "":
		return "", false
	case "120":
		return core.StatusDelivered, true
	case "111":
		return core.StatusSent, true
	default:
		return core.StatusFailed, true
	}
}

func (z Zenvia) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Action == "status" {
		if err := requireParams(req, ch, "id", "status"); err != nil {
			return inbound.Parsed{}, err
		}
		return inbound.Parsed{Events: []core.InboundEvent{
			core.StatusEvent(core.LookupByID, req.Param("id"), req.Param("status")),
		}}, nil
	}

	if err := requireParams(req, ch, "id", "from", "msg", "date"); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(req.Param("from"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, latin1(req.Param("msg")))
	ev.ExternalID = req.Param("id")
	ev.OccurredOn = parseTimeIn("02/01/2006 15:04:05", req.Param("date"), zenviaLocation)
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Zenvia) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "receive" && len(out.Msgs) > 0 {
		return inbound.OK(fmt.Sprintf("SMS Accepted: %d", out.Msgs[0].ID))
	}
	return inbound.OK("SMS Status Updated")
}

// latin1 reinterprets a string whose bytes are ISO-8859-1 as UTF-8. Values
// that are already valid UTF-8 pass through unchanged.
func latin1(value string) string {
	decoded, err := charmap.ISO8859_1.NewDecoder().String(value)
	if err != nil {
		return value
	}
	return decoded
}

package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

var highConnectionStatuses = core.StatusTable{
	"4":  core.StatusSent,
	"6":  core.StatusDelivered,
	"2":  core.StatusFailed,
	"11": core.StatusFailed,
	"12": core.StatusFailed,
	"13": core.StatusFailed,
	"14": core.StatusFailed,
	"15": core.StatusFailed,
	"16": core.StatusFailed,
}

// HighConnection handles the French High Connection gateway. Parameters are
// upper-cased, reception dates are naive UTC, and the gateway expects JSON
// acknowledgements.
type HighConnection struct {
	noAuth
}

func (HighConnection) ChannelType() core.ChannelType { return core.ChannelTypeHighConnection }

func (HighConnection) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive", "status"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodGet, http.MethodPost},
	}
}

func (HighConnection) MapStatus(raw string) (core.MsgStatus, bool) {
	return highConnectionStatuses.Map(raw)
}

func (HighConnection) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if req.Action == "status" {
		if err := requireParams(req, ch, "ret_id", "status"); err != nil {
			return inbound.Parsed{}, err
		}
		return inbound.Parsed{Events: []core.InboundEvent{
			core.StatusEvent(core.LookupByID, req.Param("ret_id"), req.Param("status")),
		}}, nil
	}

	if err := requireParams(req, ch, "FROM", "TO", "MESSAGE"); err != nil {
		return inbound.Parsed{}, err
	}
	if err := requireAddress(ch, req.Param("TO")); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(req.Param("FROM"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.NewMessageEvent(urn, req.Param("MESSAGE"))
	ev.OccurredOn = parseTimeIn("2006-01-02T15:04:05", req.Param("RECEPTION_DATE"), time.UTC)
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (HighConnection) Ack(action string, out inbound.Outcome) inbound.Response {
	if action == "receive" {
		ids := make([]int64, 0, len(out.Msgs))
		for _, msg := range out.Msgs {
			ids = append(ids, msg.ID)
		}
		return inbound.JSON(http.StatusOK, map[string]any{"accepted": ids})
	}
	return inbound.JSON(http.StatusOK, map[string]any{"updated": out.Updated})
}

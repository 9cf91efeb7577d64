package providers

import (
	"context"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

// Verboice handles call events from the Verboice IVR platform. There is no
// message traffic, only call status callbacks; unanswered calls fire the
// missed-call trigger.
type Verboice struct {
	noAuth
	noStatusTable
}

func (Verboice) ChannelType() core.ChannelType { return core.ChannelTypeVerboice }

func (Verboice) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"status"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodGet, http.MethodPost},
	}
}

func (Verboice) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if err := requireParams(req, ch, "From", "CallSid", "CallStatus"); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(req.Param("From"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	ev := core.InboundEvent{
		Kind:       core.EventCall,
		URN:        urn,
		ExternalID: req.Param("CallSid"),
		RawStatus:  req.Param("CallStatus"),
	}
	switch req.Param("CallStatus") {
	case "busy", "no-answer", "failed":
		ev.Trigger = core.TriggerMissedCall
	}
	return inbound.Parsed{Events: []core.InboundEvent{ev}}, nil
}

func (Verboice) Ack(string, inbound.Outcome) inbound.Response {
	return inbound.OK("")
}

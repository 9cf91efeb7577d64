package providers

import (
	"context"
	"net/http"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

// SMSCentral is receive-only: the gateway posts mobile/message pairs and
// expects an empty 200.
type SMSCentral struct {
	noAuth
	noStatusTable
}

func (SMSCentral) ChannelType() core.ChannelType { return core.ChannelTypeSMSCentral }

func (SMSCentral) Route() inbound.Route {
	return inbound.Route{
		Actions: []string{"receive"},
		Lookup:  inbound.LookupUUID,
		Methods: []string{http.MethodPost},
	}
}

func (SMSCentral) Parse(_ context.Context, req *inbound.Request, ch core.Channel) (inbound.Parsed, error) {
	if err := requireParams(req, ch, "mobile", "message"); err != nil {
		return inbound.Parsed{}, err
	}
	urn, err := telURN(req.Param("mobile"), ch)
	if err != nil {
		return inbound.Parsed{}, err
	}
	return inbound.Parsed{Events: []core.InboundEvent{
		core.NewMessageEvent(urn, req.Param("message")),
	}}, nil
}

func (SMSCentral) Ack(string, inbound.Outcome) inbound.Response {
	return inbound.OK("")
}

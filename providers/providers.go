package providers

import (
	"github.com/arundhatirjnavada/relay/core"
	"github.com/arundhatirjnavada/relay/inbound"
)

// All returns every gateway adapter, ready to register. The white-label
// external variants and the Twilio and Vumi families reuse one adapter value
// per channel type.
func All() []inbound.Adapter {
	return []inbound.Adapter{
		AfricasTalking{},
		Blackmyna{},
		Chikka{},
		Clickatell{},
		Facebook{},
		Globe{},
		HighConnection{},
		Hub9{},
		Infobip{},
		Jasmin{},
		Kannel{},
		Line{},
		Mage{},
		Mblox{},
		Nexmo{},
		Plivo{},
		SMSCentral{},
		Start{},
		Telegram{},
		Verboice{},
		Viber{},
		Zenvia{},
		NewExternal(core.ChannelTypeExternal),
		NewExternal(core.ChannelTypeShaqodoon),
		NewExternal(core.ChannelTypeYo),
		NewExternal(core.ChannelTypeM3Tech),
		NewTwilio(core.ChannelTypeTwilio),
		NewTwilio(core.ChannelTypeTwiml),
		NewTwilio(core.ChannelTypeTwilioMessaging),
		NewVumi(core.ChannelTypeVumi),
		NewVumi(core.ChannelTypeVumiUSSD),
	}
}

// NewRegistry builds a registry with every adapter registered.
func NewRegistry() (*inbound.Registry, error) {
	registry := inbound.NewRegistry()
	if err := registry.RegisterAll(All()...); err != nil {
		return nil, err
	}
	return registry, nil
}

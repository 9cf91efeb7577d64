package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidStatusTransition = errors.New("core: invalid message status transition")
	ErrUnknownChannelType      = errors.New("core: unknown channel type")
)

type ChannelType string

const (
	ChannelTypeAfricasTalking  ChannelType = "africastalking"
	ChannelTypeBlackmyna       ChannelType = "blackmyna"
	ChannelTypeChikka          ChannelType = "chikka"
	ChannelTypeClickatell      ChannelType = "clickatell"
	ChannelTypeExternal        ChannelType = "external"
	ChannelTypeFacebook        ChannelType = "facebook"
	ChannelTypeGlobe           ChannelType = "globe"
	ChannelTypeHighConnection  ChannelType = "highconnection"
	ChannelTypeHub9            ChannelType = "hub9"
	ChannelTypeInfobip         ChannelType = "infobip"
	ChannelTypeJasmin          ChannelType = "jasmin"
	ChannelTypeKannel          ChannelType = "kannel"
	ChannelTypeLine            ChannelType = "line"
	ChannelTypeM3Tech          ChannelType = "m3tech"
	ChannelTypeMage            ChannelType = "mage"
	ChannelTypeMblox           ChannelType = "mblox"
	ChannelTypeNexmo           ChannelType = "nexmo"
	ChannelTypePlivo           ChannelType = "plivo"
	ChannelTypeShaqodoon       ChannelType = "shaqodoon"
	ChannelTypeSMSCentral      ChannelType = "smscentral"
	ChannelTypeStart           ChannelType = "start"
	ChannelTypeTelegram        ChannelType = "telegram"
	ChannelTypeTwiml           ChannelType = "twiml"
	ChannelTypeTwilio          ChannelType = "twilio"
	ChannelTypeTwilioMessaging ChannelType = "twilio_messaging"
	ChannelTypeVerboice        ChannelType = "verboice"
	ChannelTypeViber           ChannelType = "viber"
	ChannelTypeVumi            ChannelType = "vumi"
	ChannelTypeVumiUSSD        ChannelType = "vumi_ussd"
	ChannelTypeYo              ChannelType = "yo"
	ChannelTypeZenvia          ChannelType = "zenvia"
)

type ChannelRole string

const (
	RoleSend    ChannelRole = "S"
	RoleReceive ChannelRole = "R"
	RoleCall    ChannelRole = "C"
	RoleAnswer  ChannelRole = "A"
)

// Channel is one configured connection to an external gateway. Config carries
// the per-provider credential blob (auth tokens, API ids, shared secrets).
type Channel struct {
	ID        int64
	UUID      string
	Type      ChannelType
	Address   string
	Country   string
	Scheme    string
	Roles     string
	Active    bool
	OrgID     int64
	OrgAnon   bool
	Config    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Dispatchable reports whether inbound traffic may be routed to this channel.
// Inactive or orgless channels are never valid dispatch targets.
func (c Channel) Dispatchable() bool {
	return c.Active && c.OrgID != 0
}

func (c Channel) HasRole(role ChannelRole) bool {
	return strings.Contains(c.Roles, string(role))
}

// ConfigString returns the string value stored under key in the channel's
// provider config blob, or "" when absent or not a string.
func (c Channel) ConfigString(key string) string {
	if c.Config == nil {
		return ""
	}
	value, ok := c.Config[key]
	if !ok {
		return ""
	}
	s, ok := value.(string)
	if !ok {
		return strings.TrimSpace(fmt.Sprint(value))
	}
	return strings.TrimSpace(s)
}

// Common channel config keys shared across providers.
const (
	ConfigAuthToken   = "auth_token"
	ConfigAccountSID  = "account_sid"
	ConfigAPIID       = "api_id"
	ConfigSecret      = "secret"
	ConfigVerifyToken = "verify_token"
	ConfigOrgUUID     = "org_uuid"
	ConfigUsername    = "username"
	ConfigPassword    = "password"
)

type MsgStatus string

const (
	StatusPending     MsgStatus = "P"
	StatusQueued      MsgStatus = "Q"
	StatusWired       MsgStatus = "W"
	StatusSent        MsgStatus = "S"
	StatusDelivered   MsgStatus = "D"
	StatusFailed      MsgStatus = "F"
	StatusHandled     MsgStatus = "H"
	StatusInterrupted MsgStatus = "X"
)

// PreSentStatuses is the set a message may still be in before a gateway
// confirms the send. The SENT edge only applies from these, which keeps the
// forward edges monotonic when callbacks arrive out of order.
func PreSentStatuses() []MsgStatus {
	return []MsgStatus{StatusPending, StatusQueued, StatusWired}
}

type MsgDirection string

const (
	DirectionIn  MsgDirection = "I"
	DirectionOut MsgDirection = "O"
)

// MediaRef points at one attachment as a content-type/URL pair.
type MediaRef struct {
	ContentType string
	URL         string
}

func (m MediaRef) String() string {
	return m.ContentType + ":" + m.URL
}

// Msg is the canonical unit of communication. ExternalID is the provider's own
// identifier, used to correlate later status callbacks.
type Msg struct {
	ID          int64
	ChannelID   int64
	OrgID       int64
	ContactID   int64
	URN         string
	Direction   MsgDirection
	Text        string
	Status      MsgStatus
	ExternalID  string
	BroadcastID int64
	Media       []MediaRef
	SentOn      *time.Time
	CreatedOn   time.Time
	ModifiedOn  time.Time
}

type EventKind string

const (
	EventNewMessage   EventKind = "new_message"
	EventHandleMsg    EventKind = "handle_message"
	EventStatusUpdate EventKind = "status_update"
	EventCall         EventKind = "call_event"
	EventVerify       EventKind = "subscription_verify"
	EventStopContact  EventKind = "stop_contact"
	EventTrigger      EventKind = "trigger"
)

type LookupMode string

const (
	LookupByID         LookupMode = "id"
	LookupByExternalID LookupMode = "external_id"
)

// StatusLookup identifies which outbound message(s) a status callback refers
// to: either our own message id, or the provider-assigned external id scoped
// to the channel. A callback may match more than one message (multi-part).
type StatusLookup struct {
	Mode LookupMode
	Key  string
}

// StatusPolicy carries per-provider delivery-report quirks. These are
// deliberately not generalized across adapters: some gateways' "failed"
// reports are unreliable and are ignored, and some multi-part reports should
// only confirm delivery for messages still in the wired state.
type StatusPolicy struct {
	IgnoreFailed         bool
	DeliverRequiresWired bool
	IgnoreMissing        bool
}

// InboundEvent is the normalized result of parsing one provider payload. It is
// constructed per request and never persisted directly.
type InboundEvent struct {
	Kind          EventKind
	URN           string
	ContactName   string
	Text          string
	OccurredOn    *time.Time
	ExternalID    string
	Media         []MediaRef
	RawStatus     string
	Status        MsgStatus
	Lookup        StatusLookup
	InitialStatus MsgStatus
	Policy        StatusPolicy
	Trigger       TriggerKind
}

func NewMessageEvent(urn, text string) InboundEvent {
	return InboundEvent{Kind: EventNewMessage, URN: urn, Text: text}
}

func StatusEvent(mode LookupMode, key, raw string) InboundEvent {
	return InboundEvent{
		Kind:      EventStatusUpdate,
		RawStatus: raw,
		Lookup:    StatusLookup{Mode: mode, Key: strings.TrimSpace(key)},
	}
}

// StatusTable is the fixed per-provider translation from raw gateway codes to
// the internal status vocabulary. Lookup misses are reported, never guessed.
type StatusTable map[string]MsgStatus

func (t StatusTable) Map(raw string) (MsgStatus, bool) {
	status, ok := t[strings.TrimSpace(raw)]
	return status, ok
}

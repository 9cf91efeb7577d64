package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// ChannelSelector is the provider-specific key a route resolves a channel by.
// Exactly one of UUID or Address is set; Type is always set.
type ChannelSelector struct {
	Type    ChannelType
	UUID    string
	Address string
}

// ChannelStore looks up configured channels. Implementations only return
// dispatchable channels (active, with an owning org).
type ChannelStore interface {
	GetByUUID(ctx context.Context, channelType ChannelType, uuid string) (Channel, error)
	GetByAddress(ctx context.Context, channelType ChannelType, address string) (Channel, error)
}

// CreateMsgInput is the insert shape for a new inbound message. ExternalID is
// persisted with the insert so later status callbacks can correlate without a
// read-modify-write race.
type CreateMsgInput struct {
	ChannelID   int64
	OrgID       int64
	ContactID   int64
	URN         string
	Direction   MsgDirection
	Text        string
	Status      MsgStatus
	ExternalID  string
	Media       []MediaRef
	SentOn      *time.Time
	BroadcastID int64
}

// MsgStore is the message half of the backing store. UpdateStatusWhere is the
// single atomic operation status transitions are built on: set status on every
// message matched by the selector whose current status is in allowed (empty
// allowed means unconditional), returning the number of rows changed.
type MsgStore interface {
	CreateIncoming(ctx context.Context, in CreateMsgInput) (Msg, error)
	FindByID(ctx context.Context, channelID int64, id int64) ([]Msg, error)
	FindByExternalID(ctx context.Context, channelID int64, externalID string) ([]Msg, error)
	UpdateStatusWhere(ctx context.Context, channelID int64, lookup StatusLookup, allowed []MsgStatus, status MsgStatus) (int64, error)
}

type Contact struct {
	ID    int64
	OrgID int64
	Name  string
	URNs  []string
}

// ContactResolver resolves a URN to its contact, creating one on first sight.
// Resolution is stable within an org. Anonymization happens upstream of this
// seam: the caller blanks gateway-supplied names for anonymized orgs before
// resolving, so implementations never see them. ok reports whether a contact
// was resolved; when false the message is stored against the bare URN.
type ContactResolver interface {
	ResolveOrCreate(ctx context.Context, orgID int64, urn string, name string) (Contact, bool, error)
	Stop(ctx context.Context, orgID int64, urn string) error
}

// TaskEnqueuer hands a newly created inbound message off for downstream
// handling (flow evaluation etc.). Best-effort from this core's perspective.
type TaskEnqueuer interface {
	EnqueueHandleMsg(ctx context.Context, msg Msg) error
}

type TriggerKind string

const (
	TriggerMissedCall      TriggerKind = "missed_call"
	TriggerNewConversation TriggerKind = "new_conversation"
	TriggerFollow          TriggerKind = "follow"
)

// TriggerSink receives channel events that may fire org triggers.
type TriggerSink interface {
	CatchTrigger(ctx context.Context, kind TriggerKind, ch Channel, urn string) error
}

// ChannelEventSink tracks gateway-side delivery failures for channel health.
type ChannelEventSink interface {
	TrackFailure(ctx context.Context, ch Channel, msg Msg) error
}

// BroadcastUpdater recomputes a broadcast's rollup status after one of its
// messages changes state.
type BroadcastUpdater interface {
	Update(ctx context.Context, broadcastID int64) error
}

package sqlstore

import (
	"time"

	"github.com/arundhatirjnavada/relay/core"
	"github.com/uptrace/bun"
)

type channelRecord struct {
	bun.BaseModel `bun:"table:channels,alias:ch"`

	ID          int64          `bun:"id,pk,autoincrement"`
	UUID        string         `bun:"uuid,notnull"`
	ChannelType string         `bun:"channel_type,notnull"`
	Address     string         `bun:"address"`
	Country     string         `bun:"country"`
	Scheme      string         `bun:"scheme"`
	Roles       string         `bun:"roles"`
	IsActive    bool           `bun:"is_active,notnull"`
	OrgID       int64          `bun:"org_id,notnull"`
	OrgAnon     bool           `bun:"org_anon,notnull"`
	Config      map[string]any `bun:"config,type:jsonb"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *channelRecord) toDomain() core.Channel {
	if r == nil {
		return core.Channel{}
	}
	return core.Channel{
		ID:        r.ID,
		UUID:      r.UUID,
		Type:      core.ChannelType(r.ChannelType),
		Address:   r.Address,
		Country:   r.Country,
		Scheme:    r.Scheme,
		Roles:     r.Roles,
		Active:    r.IsActive,
		OrgID:     r.OrgID,
		OrgAnon:   r.OrgAnon,
		Config:    copyAnyMap(r.Config),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type contactRecord struct {
	bun.BaseModel `bun:"table:contacts,alias:ct"`

	ID         int64     `bun:"id,pk,autoincrement"`
	OrgID      int64     `bun:"org_id,notnull"`
	Name       string    `bun:"name"`
	IsStopped  bool      `bun:"is_stopped,notnull"`
	CreatedOn  time.Time `bun:"created_on,nullzero,notnull,default:current_timestamp"`
	ModifiedOn time.Time `bun:"modified_on,nullzero,notnull,default:current_timestamp"`
}

type contactURNRecord struct {
	bun.BaseModel `bun:"table:contact_urns,alias:cu"`

	ID        int64  `bun:"id,pk,autoincrement"`
	OrgID     int64  `bun:"org_id,notnull"`
	ContactID int64  `bun:"contact_id,notnull"`
	URN       string `bun:"urn,notnull"`
}

type msgRecord struct {
	bun.BaseModel `bun:"table:msgs,alias:m"`

	ID          int64           `bun:"id,pk,autoincrement"`
	ChannelID   int64           `bun:"channel_id,notnull"`
	OrgID       int64           `bun:"org_id,notnull"`
	ContactID   int64           `bun:"contact_id"`
	URN         string          `bun:"urn,notnull"`
	Direction   string          `bun:"direction,notnull"`
	Text        string          `bun:"text"`
	Status      string          `bun:"status,notnull"`
	ExternalID  string          `bun:"external_id"`
	BroadcastID int64           `bun:"broadcast_id"`
	Media       []core.MediaRef `bun:"media,type:jsonb"`
	SentOn      *time.Time      `bun:"sent_on,nullzero"`
	CreatedOn   time.Time       `bun:"created_on,nullzero,notnull,default:current_timestamp"`
	ModifiedOn  time.Time       `bun:"modified_on,nullzero,notnull,default:current_timestamp"`
}

func (r *msgRecord) toDomain() core.Msg {
	if r == nil {
		return core.Msg{}
	}
	msg := core.Msg{
		ID:          r.ID,
		ChannelID:   r.ChannelID,
		OrgID:       r.OrgID,
		ContactID:   r.ContactID,
		URN:         r.URN,
		Direction:   core.MsgDirection(r.Direction),
		Text:        r.Text,
		Status:      core.MsgStatus(r.Status),
		ExternalID:  r.ExternalID,
		BroadcastID: r.BroadcastID,
		CreatedOn:   r.CreatedOn,
		ModifiedOn:  r.ModifiedOn,
	}
	if len(r.Media) > 0 {
		msg.Media = append([]core.MediaRef(nil), r.Media...)
	}
	if r.SentOn != nil {
		sentOn := *r.SentOn
		msg.SentOn = &sentOn
	}
	return msg
}

func copyAnyMap(input map[string]any) map[string]any {
	if input == nil {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

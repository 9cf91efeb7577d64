package sqlstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/arundhatirjnavada/relay/core"
)

// MsgStore is the bun-backed message store. Status transitions go through a
// single conditional UPDATE so concurrent callbacks for the same message
// cannot interleave a read-modify-write; the rows-affected count is the only
// truth about whether the transition happened.
type MsgStore struct {
	db *bun.DB

	// Now is swappable for tests.
	Now func() time.Time
}

func NewMsgStore(db *bun.DB) (*MsgStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &MsgStore{db: db}, nil
}

func (s *MsgStore) CreateIncoming(ctx context.Context, in core.CreateMsgInput) (core.Msg, error) {
	if s == nil || s.db == nil {
		return core.Msg{}, fmt.Errorf("sqlstore: msg store is not configured")
	}
	now := s.now()
	record := &msgRecord{
		ChannelID:   in.ChannelID,
		OrgID:       in.OrgID,
		ContactID:   in.ContactID,
		URN:         strings.TrimSpace(in.URN),
		Direction:   string(in.Direction),
		Text:        in.Text,
		Status:      string(in.Status),
		ExternalID:  strings.TrimSpace(in.ExternalID),
		BroadcastID: in.BroadcastID,
		CreatedOn:   now,
		ModifiedOn:  now,
	}
	if len(in.Media) > 0 {
		record.Media = append([]core.MediaRef(nil), in.Media...)
	}
	if in.SentOn != nil {
		sentOn := in.SentOn.UTC()
		record.SentOn = &sentOn
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return core.Msg{}, err
	}
	return record.toDomain(), nil
}

func (s *MsgStore) FindByID(ctx context.Context, channelID int64, id int64) ([]core.Msg, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: msg store is not configured")
	}
	var records []*msgRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.channel_id = ?", channelID).
		Where("?TableAlias.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return recordsToMsgs(records), nil
}

func (s *MsgStore) FindByExternalID(ctx context.Context, channelID int64, externalID string) ([]core.Msg, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: msg store is not configured")
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, nil
	}
	var records []*msgRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("?TableAlias.channel_id = ?", channelID).
		Where("?TableAlias.external_id = ?", externalID).
		OrderExpr("?TableAlias.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return recordsToMsgs(records), nil
}

// UpdateStatusWhere moves every message matched by lookup whose current
// status is in allowed to status, in one statement. An empty allowed set is
// unconditional. The caller interprets a zero count; this layer does not
// distinguish "no such message" from "message in a disallowed state".
func (s *MsgStore) UpdateStatusWhere(
	ctx context.Context,
	channelID int64,
	lookup core.StatusLookup,
	allowed []core.MsgStatus,
	status core.MsgStatus,
) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: msg store is not configured")
	}
	query := s.db.NewUpdate().
		Model((*msgRecord)(nil)).
		Set("status = ?", string(status)).
		Set("modified_on = ?", s.now()).
		Where("?TableAlias.channel_id = ?", channelID)

	switch lookup.Mode {
	case core.LookupByExternalID:
		key := strings.TrimSpace(lookup.Key)
		if key == "" {
			return 0, nil
		}
		query = query.Where("?TableAlias.external_id = ?", key)
	default:
		id, err := strconv.ParseInt(strings.TrimSpace(lookup.Key), 10, 64)
		if err != nil {
			return 0, nil
		}
		query = query.Where("?TableAlias.id = ?", id)
	}

	if len(allowed) > 0 {
		statuses := make([]string, 0, len(allowed))
		for _, current := range allowed {
			statuses = append(statuses, string(current))
		}
		query = query.Where("?TableAlias.status IN (?)", bun.In(statuses))
	}

	result, err := query.Exec(ctx)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *MsgStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func recordsToMsgs(records []*msgRecord) []core.Msg {
	if len(records) == 0 {
		return nil
	}
	out := make([]core.Msg, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out
}

var _ core.MsgStore = (*MsgStore)(nil)

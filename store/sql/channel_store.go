package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/arundhatirjnavada/relay/core"
)

// ChannelStore resolves dispatch targets from the channels table. Lookups
// only ever return channels that are valid dispatch targets; inactive or
// orgless rows behave as if they did not exist.
type ChannelStore struct {
	db   *bun.DB
	repo repository.Repository[*channelRecord]
}

func NewChannelStore(db *bun.DB) (*ChannelStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*channelRecord](db, channelHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid channel repository wiring: %w", err)
		}
	}
	return &ChannelStore{db: db, repo: repo}, nil
}

func (s *ChannelStore) GetByUUID(ctx context.Context, channelType core.ChannelType, channelUUID string) (core.Channel, error) {
	if s == nil || s.db == nil {
		return core.Channel{}, fmt.Errorf("sqlstore: channel store is not configured")
	}
	record := &channelRecord{}
	err := s.dispatchableQuery(record, channelType).
		Where("?TableAlias.uuid = ?", strings.TrimSpace(channelUUID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return core.Channel{}, channelLookupError(err, channelType, "uuid", channelUUID)
	}
	return record.toDomain(), nil
}

func (s *ChannelStore) GetByAddress(ctx context.Context, channelType core.ChannelType, address string) (core.Channel, error) {
	if s == nil || s.db == nil {
		return core.Channel{}, fmt.Errorf("sqlstore: channel store is not configured")
	}
	record := &channelRecord{}
	err := s.dispatchableQuery(record, channelType).
		Where("?TableAlias.address = ?", strings.TrimSpace(address)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return core.Channel{}, channelLookupError(err, channelType, "address", address)
	}
	return record.toDomain(), nil
}

// Create persists a new channel through the repository so identifier wiring
// stays consistent with the rest of the stores. Used by provisioning, not by
// the inbound path.
func (s *ChannelStore) Create(ctx context.Context, ch core.Channel) (core.Channel, error) {
	if s == nil || s.repo == nil {
		return core.Channel{}, fmt.Errorf("sqlstore: channel store is not configured")
	}
	record := &channelRecord{
		UUID:        strings.TrimSpace(ch.UUID),
		ChannelType: string(ch.Type),
		Address:     strings.TrimSpace(ch.Address),
		Country:     ch.Country,
		Scheme:      ch.Scheme,
		Roles:       ch.Roles,
		IsActive:    ch.Active,
		OrgID:       ch.OrgID,
		OrgAnon:     ch.OrgAnon,
		Config:      copyAnyMap(ch.Config),
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Channel{}, err
	}
	return created.toDomain(), nil
}

func (s *ChannelStore) dispatchableQuery(record *channelRecord, channelType core.ChannelType) *bun.SelectQuery {
	return s.db.NewSelect().
		Model(record).
		Where("?TableAlias.channel_type = ?", string(channelType)).
		Where("?TableAlias.is_active = ?", true).
		Where("?TableAlias.org_id <> 0")
}

func channelLookupError(err error, channelType core.ChannelType, field, value string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ChannelNotFound("channel not found", map[string]any{
			"channel_type": string(channelType),
			field:          strings.TrimSpace(value),
		})
	}
	return core.WrapError(err, goerrors.CategoryInternal, "sqlstore: channel lookup", 0, core.RelayErrorInternal, map[string]any{
		"channel_type": string(channelType),
	})
}

var _ core.ChannelStore = (*ChannelStore)(nil)

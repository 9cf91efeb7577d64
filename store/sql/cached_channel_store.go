package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/arundhatirjnavada/relay/core"
)

const channelCacheKeyPrefix = "relay::channel::v1"

// CachedChannelStore fronts channel lookups with a read-through cache.
// Channels change rarely and every inbound request resolves one, so this is
// the hottest read in the system. Writes go around this store; call
// Invalidate after provisioning changes a channel.
type CachedChannelStore struct {
	base  core.ChannelStore
	cache repositorycache.CacheService
}

func NewCachedChannelStore(base core.ChannelStore, cacheService repositorycache.CacheService) (*CachedChannelStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base channel store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: channel cache service is required")
	}
	return &CachedChannelStore{base: base, cache: cacheService}, nil
}

// ChannelCacheKey returns the deterministic cache key contract for channel
// reads: relay::channel::v1::<channel_type>::<field>::<value> with each
// segment URL-path escaped.
func ChannelCacheKey(channelType core.ChannelType, field, value string) string {
	segments := []string{
		string(channelType),
		field,
		strings.TrimSpace(value),
	}
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(append([]string{channelCacheKeyPrefix}, segments...), "::")
}

func (s *CachedChannelStore) GetByUUID(ctx context.Context, channelType core.ChannelType, channelUUID string) (core.Channel, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Channel{}, fmt.Errorf("sqlstore: cached channel store is not configured")
	}
	cacheKey := ChannelCacheKey(channelType, "uuid", channelUUID)
	ch, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Channel, error) {
		fetched, fetchErr := s.base.GetByUUID(ctx, channelType, channelUUID)
		if fetchErr != nil {
			return core.Channel{}, fetchErr
		}
		return cloneChannel(fetched), nil
	})
	if err != nil {
		return core.Channel{}, err
	}
	return cloneChannel(ch), nil
}

func (s *CachedChannelStore) GetByAddress(ctx context.Context, channelType core.ChannelType, address string) (core.Channel, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Channel{}, fmt.Errorf("sqlstore: cached channel store is not configured")
	}
	cacheKey := ChannelCacheKey(channelType, "address", address)
	ch, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.Channel, error) {
		fetched, fetchErr := s.base.GetByAddress(ctx, channelType, address)
		if fetchErr != nil {
			return core.Channel{}, fetchErr
		}
		return cloneChannel(fetched), nil
	})
	if err != nil {
		return core.Channel{}, err
	}
	return cloneChannel(ch), nil
}

// Invalidate drops the cached entries for a channel's lookup keys.
func (s *CachedChannelStore) Invalidate(ctx context.Context, ch core.Channel) error {
	if s == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached channel store is not configured")
	}
	keys := []string{ChannelCacheKey(ch.Type, "uuid", ch.UUID)}
	if ch.Address != "" {
		keys = append(keys, ChannelCacheKey(ch.Type, "address", ch.Address))
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

func cloneChannel(ch core.Channel) core.Channel {
	cloned := ch
	cloned.Config = copyAnyMap(ch.Config)
	return cloned
}

var _ core.ChannelStore = (*CachedChannelStore)(nil)

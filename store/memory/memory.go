// Package memory provides in-memory implementations of the store contracts.
// They back tests and embedded single-process deployments; the SQL stores are
// the production path.
package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arundhatirjnavada/relay/core"
)

type ChannelStore struct {
	mu       sync.RWMutex
	channels []core.Channel
}

func NewChannelStore(channels ...core.Channel) *ChannelStore {
	return &ChannelStore{channels: append([]core.Channel{}, channels...)}
}

func (s *ChannelStore) Add(ch core.Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = append(s.channels, ch)
}

func (s *ChannelStore) GetByUUID(_ context.Context, channelType core.ChannelType, uuid string) (core.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.channels {
		if ch.Type == channelType && ch.UUID == uuid && ch.Dispatchable() {
			return ch, nil
		}
	}
	return core.Channel{}, core.ChannelNotFound("channel not found", map[string]any{
		"channel_type": string(channelType),
		"uuid":         uuid,
	})
}

func (s *ChannelStore) GetByAddress(_ context.Context, channelType core.ChannelType, address string) (core.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.channels {
		if ch.Type == channelType && ch.Address == address && ch.Dispatchable() {
			return ch, nil
		}
	}
	return core.Channel{}, core.ChannelNotFound("channel not found", map[string]any{
		"channel_type": string(channelType),
		"address":      address,
	})
}

type MsgStore struct {
	mu     sync.Mutex
	msgs   map[int64]core.Msg
	nextID int64
	Now    func() time.Time
}

func NewMsgStore() *MsgStore {
	return &MsgStore{
		msgs: map[int64]core.Msg{},
		Now:  func() time.Time { return time.Now().UTC() },
	}
}

// Seed inserts a message as-is, assigning an id when missing. Test helper.
func (s *MsgStore) Seed(msg core.Msg) core.Msg {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == 0 {
		s.nextID++
		msg.ID = s.nextID
	} else if msg.ID > s.nextID {
		s.nextID = msg.ID
	}
	s.msgs[msg.ID] = msg
	return msg
}

func (s *MsgStore) Get(id int64) (core.Msg, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.msgs[id]
	return msg, ok
}

func (s *MsgStore) CreateIncoming(_ context.Context, in core.CreateMsgInput) (core.Msg, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.nextID++
	msg := core.Msg{
		ID:          s.nextID,
		ChannelID:   in.ChannelID,
		OrgID:       in.OrgID,
		ContactID:   in.ContactID,
		URN:         in.URN,
		Direction:   in.Direction,
		Text:        in.Text,
		Status:      in.Status,
		ExternalID:  in.ExternalID,
		BroadcastID: in.BroadcastID,
		Media:       append([]core.MediaRef{}, in.Media...),
		SentOn:      in.SentOn,
		CreatedOn:   now,
		ModifiedOn:  now,
	}
	s.msgs[msg.ID] = msg
	return msg, nil
}

func (s *MsgStore) FindByID(_ context.Context, channelID int64, id int64) ([]core.Msg, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.msgs[id]
	if !ok || msg.ChannelID != channelID {
		return nil, nil
	}
	return []core.Msg{msg}, nil
}

func (s *MsgStore) FindByExternalID(_ context.Context, channelID int64, externalID string) ([]core.Msg, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Msg
	for _, msg := range s.msgs {
		if msg.ChannelID == channelID && msg.ExternalID == externalID {
			out = append(out, msg)
		}
	}
	return out, nil
}

// UpdateStatusWhere is the compare-and-set transition. It mirrors the SQL
// store's single conditional UPDATE: all matched messages whose current
// status is in allowed move to status atomically under the store lock.
func (s *MsgStore) UpdateStatusWhere(
	_ context.Context,
	channelID int64,
	lookup core.StatusLookup,
	allowed []core.MsgStatus,
	status core.MsgStatus,
) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var updated int64
	for id, msg := range s.msgs {
		if msg.ChannelID != channelID || !matchesLookup(msg, lookup) {
			continue
		}
		if !statusAllowed(msg.Status, allowed) {
			continue
		}
		msg.Status = status
		msg.ModifiedOn = now
		s.msgs[id] = msg
		updated++
	}
	return updated, nil
}

func matchesLookup(msg core.Msg, lookup core.StatusLookup) bool {
	switch lookup.Mode {
	case core.LookupByExternalID:
		return msg.ExternalID != "" && msg.ExternalID == lookup.Key
	default:
		id, err := strconv.ParseInt(lookup.Key, 10, 64)
		if err != nil {
			return false
		}
		return msg.ID == id
	}
}

func statusAllowed(current core.MsgStatus, allowed []core.MsgStatus) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, status := range allowed {
		if current == status {
			return true
		}
	}
	return false
}

func (s *MsgStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

type contactKey struct {
	orgID int64
	urn   string
}

type ContactStore struct {
	mu       sync.Mutex
	contacts map[contactKey]core.Contact
	stopped  map[contactKey]bool
	nextID   int64
}

func NewContactStore() *ContactStore {
	return &ContactStore{
		contacts: map[contactKey]core.Contact{},
		stopped:  map[contactKey]bool{},
	}
}

func (s *ContactStore) Seed(orgID int64, urn, name string) core.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(orgID, urn, name)
}

// ResolveOrCreate returns the contact for urn, creating it on first sight.
// When name is empty and the contact does not exist yet it is still created;
// anonymization is the caller's concern and arrives here as an empty name.
func (s *ContactStore) ResolveOrCreate(_ context.Context, orgID int64, urn string, name string) (core.Contact, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := contactKey{orgID: orgID, urn: strings.TrimSpace(urn)}
	if contact, ok := s.contacts[key]; ok {
		if name != "" && contact.Name == "" {
			contact.Name = name
			s.contacts[key] = contact
		}
		return contact, true, nil
	}
	return s.createLocked(orgID, urn, name), true, nil
}

func (s *ContactStore) Stop(_ context.Context, orgID int64, urn string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped[contactKey{orgID: orgID, urn: strings.TrimSpace(urn)}] = true
	return nil
}

func (s *ContactStore) Stopped(orgID int64, urn string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped[contactKey{orgID: orgID, urn: strings.TrimSpace(urn)}]
}

func (s *ContactStore) createLocked(orgID int64, urn, name string) core.Contact {
	s.nextID++
	contact := core.Contact{
		ID:    s.nextID,
		OrgID: orgID,
		Name:  name,
		URNs:  []string{strings.TrimSpace(urn)},
	}
	s.contacts[contactKey{orgID: orgID, urn: strings.TrimSpace(urn)}] = contact
	return contact
}

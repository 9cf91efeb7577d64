package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/arundhatirjnavada/relay/core"
)

// ContactStore resolves URNs to contacts. URN ownership lives in the
// contact_urns table, unique per org, so resolution is stable no matter how
// many channels a contact reaches us through.
type ContactStore struct {
	db *bun.DB

	Now func() time.Time
}

func NewContactStore(db *bun.DB) (*ContactStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &ContactStore{db: db}, nil
}

// ResolveOrCreate returns the contact owning urn in the org, creating both
// the contact and the URN row on first sight. A non-empty name backfills a
// contact that was created nameless; it never overwrites an existing name.
func (s *ContactStore) ResolveOrCreate(ctx context.Context, orgID int64, urn string, name string) (core.Contact, bool, error) {
	if s == nil || s.db == nil {
		return core.Contact{}, false, fmt.Errorf("sqlstore: contact store is not configured")
	}
	urn = strings.TrimSpace(urn)
	if urn == "" {
		return core.Contact{}, false, fmt.Errorf("sqlstore: urn is required")
	}
	name = strings.TrimSpace(name)

	var contact core.Contact
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		found, err := findContactByURNTx(ctx, tx, orgID, urn)
		if err != nil {
			return err
		}
		if found != nil {
			if name != "" && found.Name == "" {
				found.Name = name
				found.ModifiedOn = s.now()
				if _, err := tx.NewUpdate().
					Model(found).
					Column("name", "modified_on").
					WherePK().
					Exec(ctx); err != nil {
					return err
				}
			}
			contact = core.Contact{ID: found.ID, OrgID: found.OrgID, Name: found.Name, URNs: []string{urn}}
			return nil
		}

		now := s.now()
		record := &contactRecord{
			OrgID:      orgID,
			Name:       name,
			CreatedOn:  now,
			ModifiedOn: now,
		}
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return err
		}
		urnRecord := &contactURNRecord{
			OrgID:     orgID,
			ContactID: record.ID,
			URN:       urn,
		}
		if _, err := tx.NewInsert().Model(urnRecord).Exec(ctx); err != nil {
			return err
		}
		contact = core.Contact{ID: record.ID, OrgID: orgID, Name: name, URNs: []string{urn}}
		return nil
	})
	if err != nil {
		return core.Contact{}, false, err
	}
	return contact, true, nil
}

// Stop marks the contact owning urn as stopped. Unknown URNs are a no-op;
// a stop for a contact we never saw carries no information worth storing.
func (s *ContactStore) Stop(ctx context.Context, orgID int64, urn string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: contact store is not configured")
	}
	urn = strings.TrimSpace(urn)
	if urn == "" {
		return nil
	}
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		found, err := findContactByURNTx(ctx, tx, orgID, urn)
		if err != nil || found == nil {
			return err
		}
		found.IsStopped = true
		found.ModifiedOn = s.now()
		_, err = tx.NewUpdate().
			Model(found).
			Column("is_stopped", "modified_on").
			WherePK().
			Exec(ctx)
		return err
	})
}

func (s *ContactStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func findContactByURNTx(ctx context.Context, tx bun.Tx, orgID int64, urn string) (*contactRecord, error) {
	record := &contactRecord{}
	err := tx.NewSelect().
		Model(record).
		Join("JOIN contact_urns AS cu ON cu.contact_id = ?TableAlias.id").
		Where("cu.org_id = ?", orgID).
		Where("cu.urn = ?", urn).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

var _ core.ContactResolver = (*ContactStore)(nil)

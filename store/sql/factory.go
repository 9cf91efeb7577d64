package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

// RepositoryFactory builds the bun-backed stores from a shared database
// handle. Stores are built once and reused; the factory is safe to thread
// through application wiring as a single value.
type RepositoryFactory struct {
	db *bun.DB

	channelStore *ChannelStore
	msgStore     *MsgStore
	contactStore *ContactStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.channelStore != nil && f.msgStore != nil && f.contactStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) ChannelStore() *ChannelStore {
	if f == nil {
		return nil
	}
	return f.channelStore
}

func (f *RepositoryFactory) MsgStore() *MsgStore {
	if f == nil {
		return nil
	}
	return f.msgStore
}

func (f *RepositoryFactory) ContactStore() *ContactStore {
	if f == nil {
		return nil
	}
	return f.contactStore
}

func (f *RepositoryFactory) initStores() error {
	channelStore, err := NewChannelStore(f.db)
	if err != nil {
		return err
	}
	msgStore, err := NewMsgStore(f.db)
	if err != nil {
		return err
	}
	contactStore, err := NewContactStore(f.db)
	if err != nil {
		return err
	}
	f.channelStore = channelStore
	f.msgStore = msgStore
	f.contactStore = contactStore
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

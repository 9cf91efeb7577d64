package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/arundhatirjnavada/relay/core"
	relaymigrations "github.com/arundhatirjnavada/relay/migrations"
	sqlstore "github.com/arundhatirjnavada/relay/store/sql"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "relay-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:relay-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = relaymigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != relaymigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, relaymigrations.WithValidationTargets(relaymigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func newTestFactory(t *testing.T) (*sqlstore.RepositoryFactory, func()) {
	t.Helper()
	client, cleanup := newSQLiteClient(t)
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		cleanup()
		t.Fatalf("new repository factory: %v", err)
	}
	return factory, cleanup
}

// seedChannel creates the channel row msg fixtures reference; the sqlite
// test database runs with foreign keys on.
func seedChannel(t *testing.T, factory *sqlstore.RepositoryFactory) core.Channel {
	t.Helper()
	ch, err := factory.ChannelStore().Create(context.Background(), core.Channel{
		UUID: "d5d43dcd-535b-4bb4-a3af-b2d5c8ab2fc6", Type: core.ChannelTypeKannel,
		Address: "2020", Country: "RW", Active: true, OrgID: 1,
	})
	if err != nil {
		t.Fatalf("seed channel: %v", err)
	}
	return ch
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"channels",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "channels" {
		t.Fatalf("expected channels table, got %q", tableName)
	}
}

func TestChannelStore_LookupsAreDispatchableOnly(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newTestFactory(t)
	defer cleanup()

	channels := factory.ChannelStore()
	active, err := channels.Create(ctx, core.Channel{
		UUID: "8eb23e93-5ecb-45ba-b726-3b064e0c56ab", Type: core.ChannelTypeKannel,
		Address: "2020", Country: "RW", Active: true, OrgID: 1,
		Config: map[string]any{"username": "kn", "password": "pw"},
	})
	if err != nil {
		t.Fatalf("create active channel: %v", err)
	}
	if _, err := channels.Create(ctx, core.Channel{
		UUID: "f3ad3eb6-d00e-47ba-8500-5d9f63312ee2", Type: core.ChannelTypeKannel,
		Address: "2021", Country: "RW", Active: false, OrgID: 1,
	}); err != nil {
		t.Fatalf("create inactive channel: %v", err)
	}

	got, err := channels.GetByUUID(ctx, core.ChannelTypeKannel, active.UUID)
	if err != nil {
		t.Fatalf("get by uuid: %v", err)
	}
	if got.ID != active.ID || got.ConfigString("username") != "kn" {
		t.Fatalf("unexpected channel %+v", got)
	}

	if _, err := channels.GetByAddress(ctx, core.ChannelTypeKannel, "2020"); err != nil {
		t.Fatalf("get by address: %v", err)
	}

	_, err = channels.GetByUUID(ctx, core.ChannelTypeKannel, "f3ad3eb6-d00e-47ba-8500-5d9f63312ee2")
	if !core.IsTextCode(err, core.RelayErrorChannelNotFound) {
		t.Fatalf("inactive channel must not resolve, got %v", err)
	}
	_, err = channels.GetByUUID(ctx, core.ChannelTypeExternal, active.UUID)
	if !core.IsTextCode(err, core.RelayErrorChannelNotFound) {
		t.Fatalf("wrong channel type must not resolve, got %v", err)
	}
}

func TestMsgStore_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newTestFactory(t)
	defer cleanup()

	ch := seedChannel(t, factory)
	msgs := factory.MsgStore()
	created, err := msgs.CreateIncoming(ctx, core.CreateMsgInput{
		ChannelID:  ch.ID,
		OrgID:      1,
		ContactID:  7,
		URN:        "tel:+250788383383",
		Direction:  core.DirectionIn,
		Text:       "hello",
		Status:     core.StatusPending,
		ExternalID: "ext-in-1",
		Media:      []core.MediaRef{{URL: "https://cdn.example.com/a.jpg", ContentType: "image/jpeg"}},
	})
	if err != nil {
		t.Fatalf("create incoming: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected assigned id, got %+v", created)
	}

	byID, err := msgs.FindByID(ctx, ch.ID, created.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if len(byID) != 1 || byID[0].Text != "hello" || len(byID[0].Media) != 1 {
		t.Fatalf("unexpected msgs %+v", byID)
	}

	byExternal, err := msgs.FindByExternalID(ctx, ch.ID, "ext-in-1")
	if err != nil {
		t.Fatalf("find by external id: %v", err)
	}
	if len(byExternal) != 1 || byExternal[0].ID != created.ID {
		t.Fatalf("unexpected msgs %+v", byExternal)
	}

	if other, err := msgs.FindByID(ctx, 99, created.ID); err != nil || len(other) != 0 {
		t.Fatalf("wrong channel must not match, got %+v %v", other, err)
	}
}

func TestMsgStore_UpdateStatusWhereIsConditional(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newTestFactory(t)
	defer cleanup()

	ch := seedChannel(t, factory)
	msgs := factory.MsgStore()
	seed := func(status core.MsgStatus, externalID string) core.Msg {
		msg, err := msgs.CreateIncoming(ctx, core.CreateMsgInput{
			ChannelID:  ch.ID,
			OrgID:      1,
			URN:        "tel:+250788383383",
			Direction:  core.DirectionOut,
			Text:       "out",
			Status:     status,
			ExternalID: externalID,
		})
		if err != nil {
			t.Fatalf("seed msg: %v", err)
		}
		return msg
	}

	wired := seed(core.StatusWired, "ext-multi")
	second := seed(core.StatusWired, "ext-multi")
	delivered := seed(core.StatusDelivered, "ext-done")

	// Both parts of the multi-part message move in one statement.
	updated, err := msgs.UpdateStatusWhere(ctx, ch.ID,
		core.StatusLookup{Mode: core.LookupByExternalID, Key: "ext-multi"},
		core.PreSentStatuses(), core.StatusSent)
	if err != nil {
		t.Fatalf("update by external id: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 rows updated, got %d", updated)
	}

	// A late SENT must not regress a delivered message.
	updated, err = msgs.UpdateStatusWhere(ctx, ch.ID,
		core.StatusLookup{Mode: core.LookupByID, Key: fmt.Sprintf("%d", delivered.ID)},
		core.PreSentStatuses(), core.StatusSent)
	if err != nil {
		t.Fatalf("conditional update: %v", err)
	}
	if updated != 0 {
		t.Fatalf("expected no rows updated for delivered message, got %d", updated)
	}

	// Empty allowed set is unconditional.
	updated, err = msgs.UpdateStatusWhere(ctx, ch.ID,
		core.StatusLookup{Mode: core.LookupByID, Key: fmt.Sprintf("%d", wired.ID)},
		nil, core.StatusFailed)
	if err != nil {
		t.Fatalf("unconditional update: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 row updated, got %d", updated)
	}

	// Garbage ids match nothing rather than erroring.
	updated, err = msgs.UpdateStatusWhere(ctx, ch.ID,
		core.StatusLookup{Mode: core.LookupByID, Key: "not-a-number"},
		nil, core.StatusFailed)
	if err != nil || updated != 0 {
		t.Fatalf("expected no-op for unparseable id, got %d %v", updated, err)
	}

	_ = second
}

func TestContactStore_ResolveOrCreateAndStop(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newTestFactory(t)
	defer cleanup()

	contacts := factory.ContactStore()
	first, ok, err := contacts.ResolveOrCreate(ctx, 1, "tel:+250788383383", "")
	if err != nil || !ok {
		t.Fatalf("resolve: %v ok=%v", err, ok)
	}
	if first.ID == 0 {
		t.Fatalf("expected assigned contact id")
	}

	again, ok, err := contacts.ResolveOrCreate(ctx, 1, "tel:+250788383383", "Nic")
	if err != nil || !ok {
		t.Fatalf("resolve again: %v ok=%v", err, ok)
	}
	if again.ID != first.ID {
		t.Fatalf("resolution must be stable, got %d then %d", first.ID, again.ID)
	}
	if again.Name != "Nic" {
		t.Fatalf("expected name backfill, got %q", again.Name)
	}

	otherOrg, _, err := contacts.ResolveOrCreate(ctx, 2, "tel:+250788383383", "")
	if err != nil {
		t.Fatalf("resolve other org: %v", err)
	}
	if otherOrg.ID == first.ID {
		t.Fatalf("urns are scoped per org")
	}

	if err := contacts.Stop(ctx, 1, "tel:+250788383383"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	var stopped bool
	if err := factory.DB().NewRaw(
		"SELECT is_stopped FROM contacts WHERE id = ?", first.ID,
	).Scan(ctx, &stopped); err != nil {
		t.Fatalf("query stopped flag: %v", err)
	}
	if !stopped {
		t.Fatalf("expected contact %d to be stopped", first.ID)
	}

	// Stopping an unknown urn is a no-op.
	if err := contacts.Stop(ctx, 1, "tel:+15550000000"); err != nil {
		t.Fatalf("stop unknown urn: %v", err)
	}
}

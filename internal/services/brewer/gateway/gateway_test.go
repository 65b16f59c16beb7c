package gateway

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/louisbranch/creature-brewer/internal/platform/errors"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/record"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/settings"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type keyLocalizer map[string]string

func (l keyLocalizer) Localize(key string) string {
	if value, ok := l[key]; ok {
		return value
	}
	return key
}

var testLocalizer = keyLocalizer{
	KeyUntitled:         "Untitled Creature",
	KeyBlueprintSummary: "Creature blueprint.",
	KeyBlueprintsLabel:  "Creature Blueprints",
	KeyCreaturesLabel:   "Brewed Creatures",
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "brewer.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func newGateway(t *testing.T, store storage.Store) *Gateway {
	t.Helper()
	return New(store, settings.New(settings.NewMemoryStore(), settings.DefaultDefaults()), testLocalizer, nil)
}

func readyGateway(t *testing.T) (*Gateway, *sqlite.Store) {
	t.Helper()
	store := openStore(t)
	g := newGateway(t, store)
	require.NoError(t, g.EnsureCollections(context.Background(), true))
	return g, store
}

func sample() blueprint.Blueprint {
	b := blueprint.Create("dnd5e", time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC))
	b.Identity.Name = "Gelatinous Cube"
	return b
}

func TestEnsureCollections(t *testing.T) {
	store := openStore(t)
	core, logs := observer.New(zap.InfoLevel)
	g := New(store, settings.New(settings.NewMemoryStore(), settings.DefaultDefaults()), testLocalizer, zap.New(core))
	ctx := context.Background()

	require.NoError(t, g.EnsureCollections(ctx, false))
	collections, err := store.ListCollections(ctx)
	require.NoError(t, err)
	assert.Empty(t, collections, "unprivileged callers create nothing")

	require.NoError(t, g.EnsureCollections(ctx, true))
	require.NoError(t, g.EnsureCollections(ctx, true))

	collections, err = store.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, collections, 2)
	assert.Equal(t, "world.acb-blueprints", collections[0].Key)
	assert.Equal(t, "Creature Blueprints", collections[0].Label)
	assert.Equal(t, storage.KindJournal, collections[0].Kind)
	assert.Equal(t, "world.acb-creatures", collections[1].Key)
	assert.Equal(t, storage.KindActor, collections[1].Kind)
	assert.Equal(t, 2, logs.FilterMessage("created collection").Len())
}

type racingStore struct {
	storage.Store
}

func (racingStore) Collection(context.Context, string) (storage.Collection, error) {
	return storage.Collection{}, storage.ErrNotFound
}

func (racingStore) CreateCollection(context.Context, storage.Collection) error {
	return storage.ErrAlreadyExists
}

func TestEnsureCollectionsToleratesConcurrentCreation(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	g := New(racingStore{}, settings.New(settings.NewMemoryStore(), settings.DefaultDefaults()), testLocalizer, zap.New(core))

	require.NoError(t, g.EnsureCollections(context.Background(), true))
	assert.Equal(t, 2, logs.FilterMessage("collection already exists").Len())
}

func TestSaveBlueprintCreatesThenUpdates(t *testing.T) {
	g, store := readyGateway(t)
	ctx := context.Background()
	b := sample()

	id, err := g.SaveBlueprint(ctx, b, "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := store.GetDocument(ctx, "world.acb-blueprints", id)
	require.NoError(t, err)
	var entry record.Blueprint
	require.NoError(t, json.Unmarshal(doc.Data, &entry))
	assert.Equal(t, "Gelatinous Cube", entry.Name)
	assert.Equal(t, "<p>Creature blueprint.</p>", entry.Content)

	b.Identity.Name = ""
	sameID, err := g.SaveBlueprint(ctx, b, id)
	require.NoError(t, err)
	assert.Equal(t, id, sameID)

	entries, err := g.ListBlueprints(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{ID: id, Name: "Untitled Creature"}}, entries)

	loaded, err := g.LoadBlueprint(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, b, loaded)
}

func TestSaveBlueprintMissingCollection(t *testing.T) {
	g := newGateway(t, openStore(t))

	_, err := g.SaveBlueprint(context.Background(), sample(), "")
	assert.Equal(t, apperrors.CodeMissingBlueprintCollection, apperrors.CodeOf(err))

	_, err = g.SaveActor(context.Background(), record.Actor{Name: "x", Type: "npc"}, "")
	assert.Equal(t, apperrors.CodeMissingCreatureCollection, apperrors.CodeOf(err))

	_, err = g.ListBlueprints(context.Background())
	assert.Equal(t, apperrors.CodeMissingBlueprintCollection, apperrors.CodeOf(err))
}

func TestSaveToUnknownID(t *testing.T) {
	g, _ := readyGateway(t)
	_, err := g.SaveBlueprint(context.Background(), sample(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveAndLoadActor(t *testing.T) {
	g, _ := readyGateway(t)
	ctx := context.Background()
	actor := record.Actor{
		Name:   "Gelatinous Cube",
		Type:   "npc",
		Img:    "cube.webp",
		System: json.RawMessage(`{"details":{}}`),
		Flags:  record.Embedding(sample()),
	}

	id, err := g.SaveActor(ctx, actor, "")
	require.NoError(t, err)

	loaded, err := g.LoadActor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cube.webp", loaded.Img)
	assert.Equal(t, []json.RawMessage{}, loaded.Items)
	embedded, ok := loaded.Flags.Blueprint()
	require.True(t, ok)
	assert.Equal(t, sample(), embedded)

	actor.Name = "Ochre Jelly"
	sameID, err := g.SaveActor(ctx, actor, id)
	require.NoError(t, err)
	assert.Equal(t, id, sameID)
	loaded, err = g.LoadActor(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Ochre Jelly", loaded.Name)
}

func TestSaveActorRejectsInvalidRecord(t *testing.T) {
	g, _ := readyGateway(t)
	_, err := g.SaveActor(context.Background(), record.Actor{Name: "No Type"}, "")
	assert.Error(t, err)
}

func TestLoadBlueprintErrors(t *testing.T) {
	g, store := readyGateway(t)
	ctx := context.Background()

	_, err := g.LoadBlueprint(ctx, "missing")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	plain, err := store.CreateDocument(ctx, "world.acb-blueprints", storage.Document{Name: "Notes", Data: json.RawMessage(`{"name":"Notes","content":"hi"}`)})
	require.NoError(t, err)
	_, err = g.LoadBlueprint(ctx, plain.ID)
	assert.Equal(t, apperrors.CodeBlueprintNotEmbedded, apperrors.CodeOf(err))
}

func TestLoadBlueprintMigratesOldRecords(t *testing.T) {
	g, store := readyGateway(t)
	ctx := context.Background()

	data := `{"name":"Old","content":"","flags":{"archive-creature-brewer":{"blueprint":{"meta":{"schemaVersion":0},"identity":{"name":"Old"}}}}}`
	doc, err := store.CreateDocument(ctx, "world.acb-blueprints", storage.Document{Name: "Old", Data: json.RawMessage(data)})
	require.NoError(t, err)

	loaded, err := g.LoadBlueprint(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, blueprint.CurrentSchemaVersion, loaded.Meta.SchemaVersion)
	assert.Equal(t, "Old", loaded.Identity.Name)
	assert.NotNil(t, loaded.Actions)
}

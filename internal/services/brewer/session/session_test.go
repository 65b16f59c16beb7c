package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/louisbranch/creature-brewer/internal/platform/errors"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/adapter/dnd5e"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/i18n"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/library"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/record"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/settings"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	createdAt = time.Date(2026, time.July, 1, 9, 0, 0, 0, time.UTC)
	savedAt   = time.Date(2026, time.July, 1, 10, 0, 0, 0, time.UTC)
)

type fakeGateway struct {
	mu             sync.Mutex
	blueprintErr   error
	actorErr       error
	savedBlueprint []savedBlueprint
	savedActors    []savedActor
	nextID         int
}

type savedBlueprint struct {
	blueprint  blueprint.Blueprint
	existingID string
}

type savedActor struct {
	actor      record.Actor
	existingID string
}

func (g *fakeGateway) SaveBlueprint(_ context.Context, b blueprint.Blueprint, existingID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.blueprintErr != nil {
		return "", g.blueprintErr
	}
	g.savedBlueprint = append(g.savedBlueprint, savedBlueprint{blueprint: b, existingID: existingID})
	if existingID != "" {
		return existingID, nil
	}
	g.nextID++
	return "bp" + string(rune('0'+g.nextID)), nil
}

func (g *fakeGateway) SaveActor(_ context.Context, actor record.Actor, existingID string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.actorErr != nil {
		return "", g.actorErr
	}
	g.savedActors = append(g.savedActors, savedActor{actor: actor, existingID: existingID})
	if existingID != "" {
		return existingID, nil
	}
	return "actor1", nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	infos []string
	errs  []string
}

func (n *fakeNotifier) Info(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, message)
}

func (n *fakeNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, message)
}

type staticPermissions bool

func (p staticPermissions) IsPrivileged() bool { return bool(p) }

type fakeConfirmer struct {
	answer  bool
	err     error
	prompts []Prompt
}

func (c *fakeConfirmer) Confirm(_ context.Context, prompt Prompt) (bool, error) {
	c.prompts = append(c.prompts, prompt)
	return c.answer, c.err
}

type panickingConfirmer struct{}

func (panickingConfirmer) Confirm(context.Context, Prompt) (bool, error) {
	panic("confirm dialog crashed")
}

type mapResolver map[string]storage.Document

func (r mapResolver) Resolve(_ context.Context, ref string) (storage.Document, error) {
	doc, ok := r[ref]
	if !ok {
		return storage.Document{}, storage.ErrNotFound
	}
	return doc, nil
}

type fakeSearcher struct {
	results []library.Result
	queries []library.Query
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, q library.Query) ([]library.Result, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeCollections []storage.Collection

func (f fakeCollections) ListCollections(context.Context) ([]storage.Collection, error) {
	return f, nil
}

type harness struct {
	session   *Session
	gateway   *fakeGateway
	notifier  *fakeNotifier
	confirmer *fakeConfirmer
	searcher  *fakeSearcher
	settings  *settings.Settings
	resolver  mapResolver
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	localizer := i18n.New(nil, "en-US")
	h := &harness{
		gateway:   &fakeGateway{},
		notifier:  &fakeNotifier{},
		confirmer: &fakeConfirmer{},
		searcher:  &fakeSearcher{},
		settings:  settings.New(settings.NewMemoryStore(), settings.DefaultDefaults()),
		resolver: mapResolver{
			"world.items.sword": {ID: "sword", Collection: "world.items", Name: "Sword", Kind: storage.KindItem, Data: json.RawMessage(`{"name":"Sword","type":"weapon"}`)},
			"world.items.ring":  {ID: "ring", Collection: "world.items", Name: "Ring", Kind: storage.KindItem, Data: json.RawMessage(`{"name":"Ring","type":"equipment"}`)},
			"world.npcs.guard":  {ID: "guard", Collection: "world.npcs", Name: "Guard", Kind: storage.KindActor, Data: json.RawMessage(`{"name":"Guard"}`)},
		},
	}
	times := []time.Time{createdAt, savedAt}
	var timesMu sync.Mutex
	cfg := Config{
		SystemID:    dnd5e.SystemID,
		Adapter:     dnd5e.New(localizer),
		Gateway:     h.gateway,
		Library:     h.searcher,
		Resolver:    h.resolver,
		Settings:    h.settings,
		Localizer:   localizer,
		Notifier:    h.notifier,
		Permissions: staticPermissions(true),
		Confirmer:   h.confirmer,
		Now: func() time.Time {
			timesMu.Lock()
			defer timesMu.Unlock()
			now := times[0]
			if len(times) > 1 {
				times = times[1:]
			}
			return now
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg, Options{})
	require.NoError(t, err)
	h.session = s
	return h
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{Settings: settings.New(nil, settings.DefaultDefaults())}, Options{})
	assert.Error(t, err)
	_, err = New(Config{Gateway: &fakeGateway{}}, Options{})
	assert.Error(t, err)
}

func TestNewSessionState(t *testing.T) {
	h := newHarness(t, nil)
	s := h.session

	assert.Equal(t, ModeNew, s.Mode())
	assert.False(t, s.Dirty())
	assert.Empty(t, s.BlueprintID())
	b := s.Blueprint()
	assert.Equal(t, blueprint.Timestamp(createdAt), b.Meta.CreatedAt)
	require.NotNil(t, b.Meta.SourceSystemID)
	assert.Equal(t, "dnd5e", *b.Meta.SourceSystemID)
	assert.Equal(t, "dnd5e", s.Adapter().ID())
}

func TestOpenExistingBlueprint(t *testing.T) {
	stored := blueprint.Blueprint{Identity: blueprint.Identity{Name: "Old"}}
	s, err := New(Config{Gateway: &fakeGateway{}, Settings: settings.New(nil, settings.DefaultDefaults())}, Options{
		Blueprint:   &stored,
		BlueprintID: "bp9",
		ActorID:     "actor9",
	})
	require.NoError(t, err)

	assert.Equal(t, ModeLoaded, s.Mode())
	assert.Equal(t, "actor9", s.ActorID())
	b := s.Blueprint()
	assert.Equal(t, blueprint.CurrentSchemaVersion, b.Meta.SchemaVersion)
	assert.NotNil(t, b.Actions)

	stored.Identity.Name = "Changed outside"
	assert.Equal(t, "Old", s.Blueprint().Identity.Name)
}

func TestBlueprintReturnsCopy(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.session.AddAction())

	b := h.session.Blueprint()
	b.Actions[0].Name = "mutated"
	assert.Empty(t, h.session.Blueprint().Actions[0].Name)
}

func TestSaveRequiresPrivilege(t *testing.T) {
	h := newHarness(t, func(cfg *Config) { cfg.Permissions = staticPermissions(false) })
	require.NoError(t, h.session.SetField("identity.name", "Kobold"))
	before := h.session.Blueprint()

	_, err := h.session.Save(context.Background())
	assert.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))
	assert.Equal(t, []string{"Only a GM can do that."}, h.notifier.errs)
	assert.Empty(t, h.gateway.savedBlueprint)
	assert.True(t, h.session.Dirty())
	assert.Equal(t, ModeNew, h.session.Mode())
	assert.Equal(t, before, h.session.Blueprint())
}

func TestSaveWithoutPermissionsDenies(t *testing.T) {
	h := newHarness(t, func(cfg *Config) { cfg.Permissions = nil })
	_, err := h.session.Save(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodePermissionDenied))
}

func TestSaveCreatesThenUpdates(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.session.SetField("identity.name", "Kobold"))

	id, err := h.session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bp1", id)
	assert.Equal(t, ModeLoaded, h.session.Mode())
	assert.False(t, h.session.Dirty())
	assert.Equal(t, []string{"Blueprint saved."}, h.notifier.infos)

	saved := h.gateway.savedBlueprint[0]
	assert.Empty(t, saved.existingID)
	assert.Equal(t, blueprint.Timestamp(savedAt), saved.blueprint.Meta.UpdatedAt)
	assert.Equal(t, blueprint.Timestamp(createdAt), saved.blueprint.Meta.CreatedAt)
	assert.Equal(t, saved.blueprint, h.session.Blueprint())

	require.NoError(t, h.session.SetField("identity.size", "small"))
	again, err := h.session.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Equal(t, id, h.gateway.savedBlueprint[1].existingID)
}

func TestSaveFailureKeepsState(t *testing.T) {
	h := newHarness(t, nil)
	h.gateway.blueprintErr = errors.New("disk full")
	require.NoError(t, h.session.SetField("identity.name", "Kobold"))
	before := h.session.Blueprint()

	_, err := h.session.Save(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"Something went wrong. Check the logs for details."}, h.notifier.errs)
	assert.True(t, h.session.Dirty())
	assert.Equal(t, ModeNew, h.session.Mode())
	assert.Equal(t, before, h.session.Blueprint())
}

func TestSaveMissingCollection(t *testing.T) {
	h := newHarness(t, nil)
	h.gateway.blueprintErr = apperrors.New(apperrors.CodeMissingBlueprintCollection, "collection is missing")

	_, err := h.session.Save(context.Background())
	assert.Equal(t, apperrors.CodeMissingBlueprintCollection, apperrors.CodeOf(err))
	assert.Equal(t, []string{"The blueprint collection is missing."}, h.notifier.errs)
}

func TestExportUnsupported(t *testing.T) {
	h := newHarness(t, func(cfg *Config) { cfg.Adapter = nil })
	_, err := h.session.ExportActor(context.Background())
	assert.Equal(t, apperrors.CodeExportUnsupported, apperrors.CodeOf(err))
	assert.Empty(t, h.gateway.savedActors)
}

func TestExportRequiresPrivilege(t *testing.T) {
	h := newHarness(t, func(cfg *Config) { cfg.Permissions = staticPermissions(false) })
	_, err := h.session.ExportActor(context.Background())
	assert.Equal(t, apperrors.CodePermissionDenied, apperrors.CodeOf(err))
	assert.Equal(t, []string{"Only a GM can do that."}, h.notifier.errs)
	assert.Empty(t, h.gateway.savedActors)
}

func TestExportEmbedsOnlyItems(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	require.NoError(t, h.session.SetField("identity.name", "Bandit Captain"))
	require.NoError(t, h.session.SetField("notes.gmNotes", "Carries the map"))
	require.NoError(t, h.session.SetField("attachments", []blueprint.Attachment{
		{Ref: "world.items.sword", Name: "Sword", Source: "world.items", Kind: "item"},
		{Ref: "world.npcs.guard", Name: "Guard", Source: "world.npcs", Kind: "actor"},
		{Ref: "world.items.gone", Name: "Gone", Source: "world.items", Kind: "item"},
		{Ref: "world.items.ring", Name: "Ring", Source: "world.items", Kind: "item"},
	}))

	id, err := h.session.ExportActor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "actor1", id)
	assert.Equal(t, "actor1", h.session.ActorID())
	assert.False(t, h.session.Dirty())
	assert.Equal(t, []string{"Creature exported."}, h.notifier.infos)

	actor := h.gateway.savedActors[0].actor
	assert.Equal(t, "Bandit Captain", actor.Name)
	assert.Equal(t, "npc", actor.Type)
	require.Len(t, actor.Items, 2)
	assert.JSONEq(t, `{"name":"Sword","type":"weapon"}`, string(actor.Items[0]))
	assert.JSONEq(t, `{"name":"Ring","type":"equipment"}`, string(actor.Items[1]))
	assert.NotContains(t, string(actor.System), "Carries the map")

	embedded, ok := actor.Flags.Blueprint()
	require.True(t, ok)
	assert.Equal(t, h.session.Blueprint(), embedded)

	_, err = h.session.ExportActor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "actor1", h.gateway.savedActors[1].existingID)
}

func TestExportFailureNotifies(t *testing.T) {
	h := newHarness(t, nil)
	h.gateway.actorErr = apperrors.New(apperrors.CodeMissingCreatureCollection, "collection is missing")
	require.NoError(t, h.session.AddAction())

	_, err := h.session.ExportActor(context.Background())
	assert.Equal(t, apperrors.CodeMissingCreatureCollection, apperrors.CodeOf(err))
	assert.Equal(t, []string{"The creature collection is missing."}, h.notifier.errs)
	assert.True(t, h.session.Dirty())
	assert.Empty(t, h.session.ActorID())
}

func TestSearchAndImport(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.searcher.results = []library.Result{
		{Ref: "world.items.sword", Name: "Sword", Source: "world.items", Kind: storage.KindItem},
		{Ref: "world.items.deleted", Name: "Deleted", Source: "world.items", Kind: storage.KindItem},
	}

	results, err := h.session.Search(ctx, "s", []string{"world.items", "world.spells"})
	require.NoError(t, err)
	assert.Equal(t, h.searcher.results, results)
	assert.Equal(t, []library.Query{{Text: "s", SourceIDs: []string{"world.items", "world.spells"}}}, h.searcher.queries)
	assert.Equal(t, results, h.session.Results())

	selected, err := h.settings.SourcePacks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"world.items", "world.spells"}, selected)
	assert.False(t, h.session.Dirty(), "searching does not edit the blueprint")

	require.NoError(t, h.session.ImportLibraryItem(ctx, 5))
	require.NoError(t, h.session.ImportLibraryItem(ctx, -1))
	require.NoError(t, h.session.ImportLibraryItem(ctx, 1))
	assert.Empty(t, h.session.Blueprint().Attachments)
	assert.False(t, h.session.Dirty())

	require.NoError(t, h.session.ImportLibraryItem(ctx, 0))
	require.NoError(t, h.session.ImportLibraryItem(ctx, 0))
	assert.Equal(t, []blueprint.Attachment{{Ref: "world.items.sword", Name: "Sword", Source: "world.items", Kind: "item"}}, h.session.Blueprint().Attachments)
	assert.True(t, h.session.Dirty())

	_, err = h.session.Save(ctx)
	require.NoError(t, err)
	require.NoError(t, h.session.ImportLibraryItem(ctx, 0))
	assert.True(t, h.session.Dirty())
	assert.Len(t, h.session.Blueprint().Attachments, 1)
}

func TestSearchError(t *testing.T) {
	h := newHarness(t, nil)
	h.searcher.err = errors.New("bad filter")
	_, err := h.session.SearchQuery(context.Background(), library.Query{Filter: "name ="})
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	t.Run("clean session closes without asking", func(t *testing.T) {
		h := newHarness(t, nil)
		closed, err := h.session.Close(context.Background())
		require.NoError(t, err)
		assert.True(t, closed)
		assert.Empty(t, h.confirmer.prompts)
		assert.True(t, h.session.Closed())

		closed, err = h.session.Close(context.Background())
		require.NoError(t, err)
		assert.True(t, closed)
	})

	t.Run("declined prompt keeps session open", func(t *testing.T) {
		h := newHarness(t, nil)
		require.NoError(t, h.session.AddAction())

		closed, err := h.session.Close(context.Background())
		require.NoError(t, err)
		assert.False(t, closed)
		assert.False(t, h.session.Closed())
		assert.Equal(t, []Prompt{{Title: "Unsaved Changes", Text: "This blueprint has unsaved changes. Close anyway?"}}, h.confirmer.prompts)
	})

	t.Run("accepted prompt closes", func(t *testing.T) {
		h := newHarness(t, nil)
		h.confirmer.answer = true
		require.NoError(t, h.session.AddAction())

		closed, err := h.session.Close(context.Background())
		require.NoError(t, err)
		assert.True(t, closed)

		err = h.session.AddAction()
		assert.Equal(t, apperrors.CodeSessionClosed, apperrors.CodeOf(err))
		_, err = h.session.Save(context.Background())
		assert.Equal(t, apperrors.CodeSessionClosed, apperrors.CodeOf(err))
	})

	t.Run("prompt error keeps session open", func(t *testing.T) {
		h := newHarness(t, nil)
		h.confirmer.err = errors.New("dialog dismissed")
		require.NoError(t, h.session.AddAction())

		closed, err := h.session.Close(context.Background())
		assert.Error(t, err)
		assert.False(t, closed)
	})

	t.Run("no confirmer keeps dirty session open", func(t *testing.T) {
		h := newHarness(t, func(cfg *Config) { cfg.Confirmer = nil })
		require.NoError(t, h.session.AddAction())

		closed, err := h.session.Close(context.Background())
		require.NoError(t, err)
		assert.False(t, closed)
	})
}

func TestObserversRunOutsideLock(t *testing.T) {
	h := newHarness(t, nil)
	var events []Event
	unsubscribe := h.session.Subscribe(func(e Event) {
		// Reading state from an observer must not deadlock.
		_ = h.session.Dirty()
		events = append(events, e)
	})

	require.NoError(t, h.session.AddAction())
	require.NoError(t, h.session.RemoveAction(9))
	_, err := h.session.Save(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, Event{Kind: EventEdited, Dirty: true}, events[0])
	assert.Equal(t, Event{Kind: EventSaved, BlueprintID: "bp1"}, events[1])

	unsubscribe()
	require.NoError(t, h.session.AddAction())
	assert.Len(t, events, 2)
}

func TestConcurrentEditsSerialize(t *testing.T) {
	h := newHarness(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.session.AddAction())
		}()
	}
	wg.Wait()
	assert.Len(t, h.session.Blueprint().Actions, 50)
}

func TestPanicInOperationReleasesLock(t *testing.T) {
	h := newHarness(t, func(cfg *Config) { cfg.Confirmer = panickingConfirmer{} })
	s := h.session
	require.NoError(t, s.AddAction())

	assert.Panics(t, func() { _, _ = s.Close(context.Background()) })

	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.True(t, s.Dirty())
		assert.NoError(t, s.AddAction())
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session lock still held after panic")
	}
	assert.Len(t, s.Blueprint().Actions, 2)
	assert.False(t, s.Closed())
}

// Package gateway persists blueprints and exported actors in the configured
// collections.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/creature-brewer/internal/platform/errors"
	"github.com/louisbranch/creature-brewer/internal/platform/logging"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/record"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/settings"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
	"go.uber.org/zap"
)

// Localization keys used for stored records.
const (
	KeyUntitled         = "brewer.ui.untitled"
	KeyBlueprintSummary = "brewer.ui.blueprint_summary"
	KeyBlueprintsLabel  = "brewer.packs.blueprints_label"
	KeyCreaturesLabel   = "brewer.packs.creatures_label"
)

// Localizer resolves localization keys.
type Localizer interface {
	Localize(key string) string
}

// Entry is one stored blueprint in a listing.
type Entry struct {
	ID   string
	Name string
}

// Gateway reads and writes brewer records. Writes are last-write-wins.
type Gateway struct {
	store     storage.Store
	settings  *settings.Settings
	localizer Localizer
	logger    *zap.Logger
}

// New creates a gateway.
func New(store storage.Store, cfg *settings.Settings, localizer Localizer, logger *zap.Logger) *Gateway {
	return &Gateway{store: store, settings: cfg, localizer: localizer, logger: logging.OrNop(logger)}
}

// SaveBlueprint writes b to the blueprint collection. A non-empty existingID
// updates that document; otherwise a document is created. It returns the
// document id.
func (g *Gateway) SaveBlueprint(ctx context.Context, b blueprint.Blueprint, existingID string) (string, error) {
	collection, err := g.blueprintCollection(ctx)
	if err != nil {
		return "", err
	}
	name := b.Identity.Name
	if name == "" {
		name = g.localize(KeyUntitled)
	}
	entry := record.Blueprint{
		Name:    name,
		Content: "<p>" + g.localize(KeyBlueprintSummary) + "</p>",
		Flags:   record.Embedding(b),
	}
	if err := record.ValidateBlueprint(entry); err != nil {
		return "", err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("encode blueprint record: %w", err)
	}
	return g.write(ctx, collection, existingID, storage.Document{Name: name, Data: data})
}

// SaveActor writes actor to the creature collection and returns its id.
func (g *Gateway) SaveActor(ctx context.Context, actor record.Actor, existingID string) (string, error) {
	collection, err := g.creatureCollection(ctx)
	if err != nil {
		return "", err
	}
	if actor.Items == nil {
		actor.Items = []json.RawMessage{}
	}
	if err := record.ValidateActor(actor); err != nil {
		return "", err
	}
	data, err := json.Marshal(actor)
	if err != nil {
		return "", fmt.Errorf("encode actor record: %w", err)
	}
	return g.write(ctx, collection, existingID, storage.Document{Name: actor.Name, Data: data})
}

// LoadBlueprint reads the blueprint embedded in a stored entry, upgraded to
// the current schema.
func (g *Gateway) LoadBlueprint(ctx context.Context, id string) (blueprint.Blueprint, error) {
	collection, err := g.blueprintCollection(ctx)
	if err != nil {
		return blueprint.Blueprint{}, err
	}
	doc, err := g.read(ctx, collection, id)
	if err != nil {
		return blueprint.Blueprint{}, err
	}
	var entry record.Blueprint
	if err := json.Unmarshal(doc.Data, &entry); err != nil {
		return blueprint.Blueprint{}, fmt.Errorf("decode blueprint record %s: %w", id, err)
	}
	b, ok := entry.Flags.Blueprint()
	if !ok {
		return blueprint.Blueprint{}, apperrors.WithMetadata(apperrors.CodeBlueprintNotEmbedded, "document has no blueprint", map[string]string{"id": id})
	}
	return blueprint.Migrate(b), nil
}

// ListBlueprints lists stored blueprints in collection order.
func (g *Gateway) ListBlueprints(ctx context.Context) ([]Entry, error) {
	collection, err := g.blueprintCollection(ctx)
	if err != nil {
		return nil, err
	}
	index, err := g.store.Index(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("list blueprints: %w", err)
	}
	entries := make([]Entry, 0, len(index))
	for _, item := range index {
		entries = append(entries, Entry{ID: item.ID, Name: item.Name})
	}
	return entries, nil
}

// LoadActor reads an exported actor.
func (g *Gateway) LoadActor(ctx context.Context, id string) (record.Actor, error) {
	collection, err := g.creatureCollection(ctx)
	if err != nil {
		return record.Actor{}, err
	}
	doc, err := g.read(ctx, collection, id)
	if err != nil {
		return record.Actor{}, err
	}
	var actor record.Actor
	if err := json.Unmarshal(doc.Data, &actor); err != nil {
		return record.Actor{}, fmt.Errorf("decode actor record %s: %w", id, err)
	}
	return actor, nil
}

// EnsureCollections creates the blueprint and creature collections when
// they are missing. Unprivileged callers are ignored. A collection created
// concurrently is not an error.
func (g *Gateway) EnsureCollections(ctx context.Context, privileged bool) error {
	if !privileged {
		return nil
	}
	blueprintKey, err := g.settings.BlueprintPack(ctx)
	if err != nil {
		return err
	}
	creatureKey, err := g.settings.CreaturePack(ctx)
	if err != nil {
		return err
	}
	required := []storage.Collection{
		{Key: blueprintKey, Label: g.localize(KeyBlueprintsLabel), Kind: storage.KindJournal},
		{Key: creatureKey, Label: g.localize(KeyCreaturesLabel), Kind: storage.KindActor},
	}
	for _, collection := range required {
		if _, err := g.store.Collection(ctx, collection.Key); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("check collection %s: %w", collection.Key, err)
		}
		if err := g.store.CreateCollection(ctx, collection); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				g.logger.Warn("collection already exists", zap.String("collection", collection.Key))
				continue
			}
			return fmt.Errorf("create collection %s: %w", collection.Key, err)
		}
		g.logger.Info("created collection", zap.String("collection", collection.Key), zap.String("kind", string(collection.Kind)))
	}
	return nil
}

func (g *Gateway) blueprintCollection(ctx context.Context) (string, error) {
	key, err := g.settings.BlueprintPack(ctx)
	if err != nil {
		return "", err
	}
	return g.requireCollection(ctx, key, apperrors.CodeMissingBlueprintCollection)
}

func (g *Gateway) creatureCollection(ctx context.Context) (string, error) {
	key, err := g.settings.CreaturePack(ctx)
	if err != nil {
		return "", err
	}
	return g.requireCollection(ctx, key, apperrors.CodeMissingCreatureCollection)
}

func (g *Gateway) requireCollection(ctx context.Context, key string, missing apperrors.Code) (string, error) {
	collection, err := g.store.Collection(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperrors.WithMetadata(missing, "collection is missing", map[string]string{"collection": key})
		}
		return "", fmt.Errorf("get collection %s: %w", key, err)
	}
	return collection.Key, nil
}

func (g *Gateway) write(ctx context.Context, collection string, existingID string, doc storage.Document) (string, error) {
	if existingID != "" {
		doc.ID = existingID
		if _, err := g.store.UpdateDocument(ctx, collection, doc); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return "", apperrors.Wrap(apperrors.CodeNotFound, "update "+collection+"."+existingID, err)
			}
			return "", fmt.Errorf("update document: %w", err)
		}
		return existingID, nil
	}
	created, err := g.store.CreateDocument(ctx, collection, doc)
	if err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}
	return created.ID, nil
}

func (g *Gateway) read(ctx context.Context, collection string, id string) (storage.Document, error) {
	doc, err := g.store.GetDocument(ctx, collection, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Document{}, apperrors.Wrap(apperrors.CodeNotFound, "get "+collection+"."+id, err)
		}
		return storage.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (g *Gateway) localize(key string) string {
	if g.localizer == nil {
		return key
	}
	return g.localizer.Localize(key)
}

// Package dnd5e adapts blueprints to the D&D fifth edition system.
package dnd5e

import (
	"encoding/json"
	"fmt"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/adapter"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/record"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/validation"
	"github.com/tidwall/sjson"
)

const (
	// SystemID is the host system id this adapter activates for.
	SystemID = "dnd5e"
	// ActorType is the actor type of exported creatures.
	ActorType = "npc"

	biographyPath = "details.biography.value"
)

// Validation keys specific to D&D 5e.
const (
	KeyMissingSize = "brewer.validation.dnd5e.missing_size"
	KeyMissingType = "brewer.validation.dnd5e.missing_type"
)

// Adapter exports blueprints as dnd5e NPC actors.
type Adapter struct {
	localizer adapter.Localizer
}

// New creates a dnd5e adapter. localizer may be nil, in which case headings
// are rendered as their keys.
func New(localizer adapter.Localizer) *Adapter {
	return &Adapter{localizer: localizer}
}

// ID returns the adapter id.
func (a *Adapter) ID() string { return SystemID }

// SupportsActorExport reports that dnd5e actors can be exported.
func (a *Adapter) SupportsActorExport() bool { return true }

// IsActive reports whether systemID is dnd5e.
func (a *Adapter) IsActive(systemID string) bool { return systemID == SystemID }

// BlueprintToActorData builds an NPC whose biography holds the public
// description and actions.
func (a *Adapter) BlueprintToActorData(b blueprint.Blueprint) (record.Actor, error) {
	system, err := sjson.SetBytes([]byte(`{}`), biographyPath, adapter.DescriptionHTML(b, a.localizer))
	if err != nil {
		return record.Actor{}, fmt.Errorf("build dnd5e system data: %w", err)
	}
	return record.Actor{
		Name:   adapter.ActorName(b, a.localizer),
		Type:   ActorType,
		Img:    adapter.ActorImg(b),
		System: system,
		Items:  []json.RawMessage{},
		Flags:  record.Embedding(b),
	}, nil
}

// ActorToBlueprint returns the blueprint embedded in actor.
func (a *Adapter) ActorToBlueprint(actor record.Actor) (blueprint.Blueprint, bool) {
	return adapter.EmbeddedBlueprint(actor)
}

// ImportLibraryDocument attaches doc once per reference.
func (a *Adapter) ImportLibraryDocument(doc storage.Document, b blueprint.Blueprint) blueprint.Blueprint {
	return adapter.DefaultImport(doc, b)
}

// LibrarySuggestions recommends item collections.
func (a *Adapter) LibrarySuggestions() []adapter.Suggestion {
	return []adapter.Suggestion{{LabelKey: "brewer.library.suggested_items", Kind: storage.KindItem}}
}

// Validate flags a missing size or creature type.
func (a *Adapter) Validate(b blueprint.Blueprint) []validation.Message {
	messages := []validation.Message{}
	if b.Identity.Size == "" {
		messages = append(messages, validation.Info(KeyMissingSize, validation.SectionBasics))
	}
	if b.Identity.Type == "" {
		messages = append(messages, validation.Info(KeyMissingType, validation.SectionBasics))
	}
	return messages
}

var (
	_ adapter.Adapter          = (*Adapter)(nil)
	_ adapter.Importer         = (*Adapter)(nil)
	_ adapter.LibrarySuggester = (*Adapter)(nil)
)

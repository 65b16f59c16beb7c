package adapter

import (
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/record"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/validation"
)

// Adapter connects blueprints to one game system.
type Adapter interface {
	ID() string
	SupportsActorExport() bool
	IsActive(systemID string) bool
	// BlueprintToActorData projects b into an actor with the blueprint
	// embedded in its flags. GM notes are never projected.
	BlueprintToActorData(b blueprint.Blueprint) (record.Actor, error)
	// ActorToBlueprint recovers the embedded blueprint, if any.
	ActorToBlueprint(actor record.Actor) (blueprint.Blueprint, bool)
	Validate(b blueprint.Blueprint) []validation.Message
}

// Importer is implemented by adapters that fold library documents into
// blueprints themselves.
type Importer interface {
	ImportLibraryDocument(doc storage.Document, b blueprint.Blueprint) blueprint.Blueprint
}

// LibrarySuggester is implemented by adapters that recommend library
// collection kinds.
type LibrarySuggester interface {
	LibrarySuggestions() []Suggestion
}

// Suggestion recommends collections of one kind as library sources.
type Suggestion struct {
	LabelKey string
	Kind     storage.Kind
}

// Localizer resolves localization keys.
type Localizer interface {
	Localize(key string) string
}

// DefaultImport appends doc as an attachment unless its reference is
// already attached. b is not modified.
func DefaultImport(doc storage.Document, b blueprint.Blueprint) blueprint.Blueprint {
	out := blueprint.Clone(b)
	ref := doc.Ref()
	if out.HasAttachment(ref) {
		return out
	}
	out.Attachments = append(out.Attachments, blueprint.Attachment{
		Ref:    ref,
		Name:   doc.Name,
		Source: doc.Collection,
		Kind:   string(doc.Kind),
	})
	return out
}

// Import folds doc into b through a's Importer when it has one, or through
// DefaultImport otherwise.
func Import(a Adapter, doc storage.Document, b blueprint.Blueprint) blueprint.Blueprint {
	if importer, ok := a.(Importer); ok {
		return importer.ImportLibraryDocument(doc, b)
	}
	return DefaultImport(doc, b)
}

// Suggestions returns a's library suggestions, or nil.
func Suggestions(a Adapter) []Suggestion {
	if suggester, ok := a.(LibrarySuggester); ok {
		return suggester.LibrarySuggestions()
	}
	return nil
}

// EmbeddedBlueprint implements ActorToBlueprint for adapters that embed the
// blueprint under the shared flag namespace.
func EmbeddedBlueprint(actor record.Actor) (blueprint.Blueprint, bool) {
	return actor.Flags.Blueprint()
}

package session

import (
	"context"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/adapter"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/library"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/validation"
)

// View is the presentation context of a session.
type View struct {
	Privileged      bool
	ShowHelp        bool
	AdapterID       string
	SupportsExport  bool
	Mode            Mode
	Dirty           bool
	BlueprintID     string
	ExportedActorID string
	Blueprint       blueprint.Blueprint
	TagsText        string
	Messages        []validation.Message
	Library         LibraryView
}

// LibraryView describes the library panel.
type LibraryView struct {
	Sources     []SourceOption
	Selected    []string
	Results     []library.Result
	Suggestions []adapter.Suggestion
}

// SourceOption is one collection that can be searched.
type SourceOption struct {
	Key       string
	Label     string
	Kind      storage.Kind
	Selected  bool
	Suggested bool
}

// Messages returns base validation followed by the adapter's messages.
func (s *Session) Messages() []validation.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messagesLocked()
}

func (s *Session) messagesLocked() []validation.Message {
	base := validation.Validate(s.blueprint)
	if s.cfg.Adapter == nil {
		return validation.Combine(base, nil)
	}
	return validation.Combine(base, s.cfg.Adapter.Validate(s.blueprint))
}

// View builds the presentation context.
func (s *Session) View(ctx context.Context) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	showHelp, err := s.cfg.Settings.ShowHelpText(ctx)
	if err != nil {
		return View{}, err
	}
	selected, err := s.cfg.Settings.SourcePacks(ctx)
	if err != nil {
		return View{}, err
	}

	view := View{
		Privileged:      s.privileged(),
		ShowHelp:        showHelp,
		Mode:            s.modeLocked(),
		Dirty:           s.dirty,
		BlueprintID:     s.blueprintID,
		ExportedActorID: s.actorID,
		Blueprint:       blueprint.Clone(s.blueprint),
		TagsText:        blueprint.JoinTags(s.blueprint.Identity.Tags),
		Messages:        s.messagesLocked(),
		Library: LibraryView{
			Selected:    selected,
			Results:     append([]library.Result{}, s.results...),
			Suggestions: adapter.Suggestions(s.cfg.Adapter),
		},
	}
	if s.cfg.Adapter != nil {
		view.AdapterID = s.cfg.Adapter.ID()
		view.SupportsExport = s.cfg.Adapter.SupportsActorExport()
	}

	if s.cfg.Collections != nil {
		collections, err := s.cfg.Collections.ListCollections(ctx)
		if err != nil {
			return View{}, err
		}
		view.Library.Sources = sourceOptions(collections, selected, view.Library.Suggestions)
	}
	return view, nil
}

func sourceOptions(collections []storage.Collection, selected []string, suggestions []adapter.Suggestion) []SourceOption {
	isSelected := make(map[string]bool, len(selected))
	for _, key := range selected {
		isSelected[key] = true
	}
	suggestedKinds := make(map[storage.Kind]bool, len(suggestions))
	for _, suggestion := range suggestions {
		suggestedKinds[suggestion.Kind] = true
	}

	options := make([]SourceOption, 0, len(collections))
	for _, collection := range collections {
		options = append(options, SourceOption{
			Key:       collection.Key,
			Label:     collection.Label,
			Kind:      collection.Kind,
			Selected:  isSelected[collection.Key],
			Suggested: suggestedKinds[collection.Kind],
		})
	}
	return options
}

package session

import (
	"context"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/adapter"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/library"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Search stores sourceIDs as the selected library sources and searches
// them for text.
func (s *Session) Search(ctx context.Context, text string, sourceIDs []string) ([]library.Result, error) {
	return s.SearchQuery(ctx, library.Query{Text: text, SourceIDs: sourceIDs})
}

// SearchQuery is Search with an optional filter expression.
func (s *Session) SearchQuery(ctx context.Context, q library.Query) ([]library.Result, error) {
	ctx, span := s.tracer.Start(ctx, "Session.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("library.sources", len(q.SourceIDs)))

	var results []library.Result
	err := s.run(func() (EventKind, error) {
		if err := s.cfg.Settings.SetSourcePacks(ctx, q.SourceIDs); err != nil {
			s.logger.Warn("store selected library sources", zap.Error(err))
		}
		if s.cfg.Library == nil {
			s.results = []library.Result{}
			return EventSearched, nil
		}
		found, err := s.cfg.Library.Search(ctx, q)
		if err != nil {
			return "", err
		}
		s.results = found
		results = append([]library.Result{}, found...)
		return EventSearched, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "library search failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("library.results", len(results)))
	if results == nil {
		results = []library.Result{}
	}
	return results, nil
}

// ImportLibraryItem folds the search result at index into the blueprint.
// An index out of range or a reference that no longer resolves does nothing.
func (s *Session) ImportLibraryItem(ctx context.Context, index int) error {
	ctx, span := s.tracer.Start(ctx, "Session.ImportLibraryItem")
	defer span.End()

	return s.run(func() (EventKind, error) {
		if index < 0 || index >= len(s.results) || s.cfg.Resolver == nil {
			return "", nil
		}
		result := s.results[index]
		span.SetAttributes(attribute.String("library.ref", result.Ref))
		doc, err := s.cfg.Resolver.Resolve(ctx, result.Ref)
		if err != nil {
			s.logger.Warn("library reference did not resolve", zap.String("ref", result.Ref), zap.Error(err))
			return "", nil
		}
		s.blueprint = adapter.Import(s.cfg.Adapter, doc, s.blueprint)
		s.dirty = true
		return EventEdited, nil
	})
}

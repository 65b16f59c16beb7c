// Package library searches document collections for items to attach to
// blueprints.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/creature-brewer/internal/platform/logging"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/library/filter"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
	"go.uber.org/zap"
)

// FilterFields are the identifiers accepted in a Query filter.
var FilterFields = []string{"name", "source", "kind"}

// Source is the part of the document store the index reads.
type Source interface {
	Collection(ctx context.Context, key string) (storage.Collection, error)
	Index(ctx context.Context, collectionKey string) ([]storage.IndexEntry, error)
}

// Query selects library documents. Text is matched as a case-insensitive
// substring of the name; an empty Text matches everything. Filter is an
// optional AIP-160 expression over FilterFields.
type Query struct {
	Text      string
	SourceIDs []string
	Filter    string
}

// Result is one matching document.
type Result struct {
	Ref    string       `json:"uuid"`
	Name   string       `json:"name"`
	Source string       `json:"pack"`
	Kind   storage.Kind `json:"type"`
}

// Index searches collections on demand.
type Index struct {
	source Source
	logger *zap.Logger
}

// NewIndex creates an index over source.
func NewIndex(source Source, logger *zap.Logger) *Index {
	return &Index{source: source, logger: logging.OrNop(logger)}
}

// Search returns matches grouped by source in the order of q.SourceIDs, each
// group in index order. Missing or unreadable sources are skipped.
func (i *Index) Search(ctx context.Context, q Query) ([]Result, error) {
	if i == nil || i.source == nil {
		return nil, fmt.Errorf("library source is not configured")
	}
	parsed, err := filter.Parse(q.Filter, FilterFields)
	if err != nil {
		return nil, err
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))

	results := []Result{}
	for _, sourceID := range q.SourceIDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		collection, err := i.source.Collection(ctx, sourceID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !errors.Is(err, storage.ErrNotFound) {
				i.logger.Warn("library source lookup failed", zap.String("source", sourceID), zap.Error(err))
			}
			continue
		}
		entries, err := i.source.Index(ctx, collection.Key)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			i.logger.Warn("library index failed", zap.String("source", collection.Key), zap.Error(err))
			continue
		}
		for _, entry := range entries {
			if text != "" && !strings.Contains(strings.ToLower(entry.Name), text) {
				continue
			}
			result := Result{
				Ref:    storage.Ref(collection.Key, entry.ID),
				Name:   entry.Name,
				Source: collection.Key,
				Kind:   collection.Kind,
			}
			ok, err := parsed.Match(map[string]string{
				"name":   result.Name,
				"source": result.Source,
				"kind":   string(result.Kind),
			})
			if err != nil {
				return nil, fmt.Errorf("evaluate filter: %w", err)
			}
			if ok {
				results = append(results, result)
			}
		}
	}
	return results, nil
}

package library

import (
	"context"
	"errors"
	"testing"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSource struct {
	collections map[string]storage.Collection
	entries     map[string][]storage.IndexEntry
	indexErr    map[string]error
	lookupErr   error
}

func (f *fakeSource) Collection(_ context.Context, key string) (storage.Collection, error) {
	if f.lookupErr != nil {
		return storage.Collection{}, f.lookupErr
	}
	collection, ok := f.collections[key]
	if !ok {
		return storage.Collection{}, storage.ErrNotFound
	}
	return collection, nil
}

func (f *fakeSource) Index(_ context.Context, key string) ([]storage.IndexEntry, error) {
	if err := f.indexErr[key]; err != nil {
		return nil, err
	}
	return f.entries[key], nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		collections: map[string]storage.Collection{
			"world.items":  {Key: "world.items", Kind: storage.KindItem},
			"world.spells": {Key: "world.spells", Kind: storage.KindItem},
			"world.beasts": {Key: "world.beasts", Kind: storage.KindActor},
		},
		entries: map[string][]storage.IndexEntry{
			"world.items": {
				{ID: "i1", Name: "Flame Tongue"},
				{ID: "i2", Name: "Shield"},
				{ID: "i3", Name: "Fire Opal"},
			},
			"world.spells": {
				{ID: "s1", Name: "Fireball"},
			},
			"world.beasts": {
				{ID: "b1", Name: "Fire Beetle"},
			},
		},
		indexErr: map[string]error{},
	}
}

func names(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, result := range results {
		out = append(out, result.Name)
	}
	return out
}

func TestSearchOrdersBySourceThenIndex(t *testing.T) {
	index := NewIndex(newFakeSource(), nil)

	results, err := index.Search(context.Background(), Query{Text: " FIRE ", SourceIDs: []string{"world.spells", "world.items"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fireball", "Fire Opal"}, names(results))
	assert.Equal(t, Result{Ref: "world.spells.s1", Name: "Fireball", Source: "world.spells", Kind: storage.KindItem}, results[0])
}

func TestSearchEmptyTextMatchesAll(t *testing.T) {
	index := NewIndex(newFakeSource(), nil)

	results, err := index.Search(context.Background(), Query{SourceIDs: []string{"world.items"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Flame Tongue", "Shield", "Fire Opal"}, names(results))
}

func TestSearchSkipsMissingAndFailingSources(t *testing.T) {
	source := newFakeSource()
	source.indexErr["world.spells"] = errors.New("index unavailable")
	core, logs := observer.New(zap.WarnLevel)
	index := NewIndex(source, zap.New(core))

	results, err := index.Search(context.Background(), Query{Text: "fire", SourceIDs: []string{"world.missing", "world.spells", "world.beasts"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fire Beetle"}, names(results))
	assert.Equal(t, 1, logs.FilterMessage("library index failed").Len())
}

func TestSearchLogsLookupFailures(t *testing.T) {
	source := newFakeSource()
	source.lookupErr = errors.New("disk error")
	core, logs := observer.New(zap.WarnLevel)
	index := NewIndex(source, zap.New(core))

	results, err := index.Search(context.Background(), Query{SourceIDs: []string{"world.items"}})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, logs.FilterMessage("library source lookup failed").Len())
}

func TestSearchWithFilter(t *testing.T) {
	index := NewIndex(newFakeSource(), nil)

	results, err := index.Search(context.Background(), Query{
		Text:      "fire",
		SourceIDs: []string{"world.items", "world.beasts"},
		Filter:    `kind = "item"`,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fire Opal"}, names(results))

	_, err = index.Search(context.Background(), Query{SourceIDs: []string{"world.items"}, Filter: `rarity = "rare"`})
	assert.Error(t, err)
}

func TestSearchNoSources(t *testing.T) {
	results, err := NewIndex(newFakeSource(), nil).Search(context.Background(), Query{Text: "fire"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewIndex(newFakeSource(), nil).Search(ctx, Query{SourceIDs: []string{"world.items"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchRequiresSource(t *testing.T) {
	_, err := NewIndex(nil, nil).Search(context.Background(), Query{})
	assert.Error(t, err)
}

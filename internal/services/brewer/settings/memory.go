package settings

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]json.RawMessage
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]json.RawMessage{}}
}

func (m *MemoryStore) GetSetting(ctx context.Context, moduleID string, key string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[moduleID+"."+key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append(json.RawMessage{}, value...), nil
}

func (m *MemoryStore) SetSetting(ctx context.Context, moduleID string, key string, value json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[moduleID+"."+key] = append(json.RawMessage{}, value...)
	return nil
}

var _ Store = (*MemoryStore)(nil)

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
)

// GetSetting returns the stored JSON value of a module setting.
func (s *Store) GetSetting(ctx context.Context, moduleID string, key string) (json.RawMessage, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	moduleID = strings.TrimSpace(moduleID)
	key = strings.TrimSpace(key)
	if moduleID == "" || key == "" {
		return nil, fmt.Errorf("module id and key are required")
	}

	var value string
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT value FROM settings WHERE module_id = ? AND key = ?`,
		moduleID,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return json.RawMessage(value), nil
}

// SetSetting upserts the JSON value of a module setting.
func (s *Store) SetSetting(ctx context.Context, moduleID string, key string, value json.RawMessage) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	moduleID = strings.TrimSpace(moduleID)
	key = strings.TrimSpace(key)
	if moduleID == "" || key == "" {
		return fmt.Errorf("module id and key are required")
	}
	if !json.Valid(value) {
		return fmt.Errorf("setting %s.%s is not valid JSON", moduleID, key)
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO settings (module_id, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(module_id, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		moduleID,
		key,
		string(value),
		toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// Package settings reads and writes the brewer's world settings.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/creature-brewer/internal/platform/config"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
)

// ModuleID namespaces every brewer setting.
const ModuleID = "archive-creature-brewer"

// Recognized setting keys.
const (
	KeySourcePacks          = "sourcePacks"
	KeyDefaultBlueprintPack = "defaultBlueprintPack"
	KeyDefaultCreaturePack  = "defaultCreaturePack"
	KeyShowHelpText         = "showHelpText"
)

// Store persists JSON setting values by module and key. GetSetting returns
// storage.ErrNotFound for unset keys.
type Store interface {
	GetSetting(ctx context.Context, moduleID string, key string) (json.RawMessage, error)
	SetSetting(ctx context.Context, moduleID string, key string, value json.RawMessage) error
}

// Defaults are used for settings that were never written.
type Defaults struct {
	SourcePacks   []string `env:"SOURCE_PACKS" envSeparator:","`
	BlueprintPack string   `env:"BLUEPRINT_PACK" envDefault:"world.acb-blueprints"`
	CreaturePack  string   `env:"CREATURE_PACK" envDefault:"world.acb-creatures"`
	ShowHelpText  bool     `env:"SHOW_HELP" envDefault:"true"`
}

// DefaultDefaults returns the built-in defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		SourcePacks:   []string{},
		BlueprintPack: "world.acb-blueprints",
		CreaturePack:  "world.acb-creatures",
		ShowHelpText:  true,
	}
}

// LoadDefaults reads defaults from CREATURE_BREWER_* environment variables.
func LoadDefaults() (Defaults, error) {
	defaults := Defaults{}
	if err := config.ParseEnvWithPrefix(&defaults, config.EnvPrefix); err != nil {
		return Defaults{}, fmt.Errorf("parse settings defaults: %w", err)
	}
	if defaults.SourcePacks == nil {
		defaults.SourcePacks = []string{}
	}
	return defaults, nil
}

// Settings is the typed view over a Store.
type Settings struct {
	store    Store
	defaults Defaults
}

// New creates settings backed by store.
func New(store Store, defaults Defaults) *Settings {
	return &Settings{store: store, defaults: defaults}
}

// SourcePacks returns the library collections selected for search.
func (s *Settings) SourcePacks(ctx context.Context) ([]string, error) {
	packs := append([]string{}, s.defaults.SourcePacks...)
	if err := s.get(ctx, KeySourcePacks, &packs); err != nil {
		return nil, err
	}
	if packs == nil {
		packs = []string{}
	}
	return packs, nil
}

// SetSourcePacks stores the selected library collections.
func (s *Settings) SetSourcePacks(ctx context.Context, packs []string) error {
	clean := []string{}
	for _, pack := range packs {
		if pack = strings.TrimSpace(pack); pack != "" {
			clean = append(clean, pack)
		}
	}
	return s.set(ctx, KeySourcePacks, clean)
}

// BlueprintPack returns the collection key blueprints are saved to.
func (s *Settings) BlueprintPack(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyDefaultBlueprintPack, s.defaults.BlueprintPack)
}

// SetBlueprintPack changes the blueprint collection key.
func (s *Settings) SetBlueprintPack(ctx context.Context, key string) error {
	return s.set(ctx, KeyDefaultBlueprintPack, strings.TrimSpace(key))
}

// CreaturePack returns the collection key actors are exported to.
func (s *Settings) CreaturePack(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyDefaultCreaturePack, s.defaults.CreaturePack)
}

// SetCreaturePack changes the actor collection key.
func (s *Settings) SetCreaturePack(ctx context.Context, key string) error {
	return s.set(ctx, KeyDefaultCreaturePack, strings.TrimSpace(key))
}

// ShowHelpText reports whether editors show inline help.
func (s *Settings) ShowHelpText(ctx context.Context) (bool, error) {
	show := s.defaults.ShowHelpText
	if err := s.get(ctx, KeyShowHelpText, &show); err != nil {
		return false, err
	}
	return show, nil
}

// SetShowHelpText toggles inline help.
func (s *Settings) SetShowHelpText(ctx context.Context, show bool) error {
	return s.set(ctx, KeyShowHelpText, show)
}

func (s *Settings) getString(ctx context.Context, key string, fallback string) (string, error) {
	value := fallback
	if err := s.get(ctx, key, &value); err != nil {
		return "", err
	}
	return value, nil
}

// get decodes the stored value into target, leaving target untouched when
// the key is unset.
func (s *Settings) get(ctx context.Context, key string, target any) error {
	if s == nil || s.store == nil {
		return nil
	}
	raw, err := s.store.GetSetting(ctx, ModuleID, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get setting %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}
	return nil
}

func (s *Settings) set(ctx context.Context, key string, value any) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("settings store is not configured")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	if err := s.store.SetSetting(ctx, ModuleID, key, raw); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

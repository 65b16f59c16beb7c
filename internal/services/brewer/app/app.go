// Package app wires the brewer services into one module: adapters, the
// persistence gateway, the library index, and editor sessions.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/louisbranch/creature-brewer/internal/platform/errors"
	"github.com/louisbranch/creature-brewer/internal/platform/logging"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/adapter"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/adapter/daggerheart"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/adapter/dnd5e"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/gateway"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/launcher"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/library"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/session"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/settings"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
	"go.uber.org/zap"
)

// Version is the module version. Release builds override it with -ldflags.
var Version = "0.1.0-dev"

// Store is the document store the module runs on.
type Store interface {
	storage.Store
	storage.Resolver
}

// Localizer resolves localization keys.
type Localizer interface {
	Localize(key string) string
}

// Config wires the module to its host. Store and Settings are required.
type Config struct {
	SystemID    string
	Store       Store
	Settings    *settings.Settings
	Localizer   Localizer
	Notifier    session.Notifier
	Permissions session.Permissions
	Confirmer   session.Confirmer
	// Registrar is optional; without one no launcher is registered.
	Registrar launcher.Registrar
	// Present shows a session opened from the launcher.
	Present func(ctx context.Context, s *session.Session) error
	// Adapters replaces the built-in dnd5e and daggerheart adapters.
	Adapters []adapter.Adapter
	Logger   *zap.Logger
	Now      func() time.Time
}

// Module is the brewer composition root.
type Module struct {
	cfg      Config
	logger   *zap.Logger
	registry *adapter.Registry
	gateway  *gateway.Gateway
	library  *library.Index
}

// New creates a module.
func New(cfg Config) (*Module, error) {
	if cfg.Store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.Settings == nil {
		return nil, errors.New("settings are required")
	}
	logger := logging.OrNop(cfg.Logger)

	adapters := cfg.Adapters
	if adapters == nil {
		adapters = []adapter.Adapter{dnd5e.New(cfg.Localizer), daggerheart.New(cfg.Localizer)}
	}
	registry, err := adapter.NewRegistry(adapters...)
	if err != nil {
		return nil, fmt.Errorf("register adapters: %w", err)
	}

	return &Module{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		gateway:  gateway.New(cfg.Store, cfg.Settings, cfg.Localizer, logger.Named("gateway")),
		library:  library.NewIndex(cfg.Store, logger.Named("library")),
	}, nil
}

// Version returns the module version.
func (m *Module) Version() string {
	return Version
}

// Adapter returns the adapter active for the configured system, or nil.
func (m *Module) Adapter() adapter.Adapter {
	return m.registry.Active(m.cfg.SystemID)
}

// Adapters returns the registered adapters.
func (m *Module) Adapters() []adapter.Adapter {
	return m.registry.All()
}

// Gateway returns the persistence gateway.
func (m *Module) Gateway() *gateway.Gateway {
	return m.gateway
}

// Ready runs the startup hooks: it ensures the collections exist for a
// privileged user and registers the launcher when a registrar is present.
// A failed launcher registration does not fail Ready.
func (m *Module) Ready(ctx context.Context) error {
	privileged := m.cfg.Permissions != nil && m.cfg.Permissions.IsPrivileged()
	if err := m.gateway.EnsureCollections(ctx, privileged); err != nil {
		return fmt.Errorf("ensure collections: %w", err)
	}
	l := launcher.New(m.cfg.Localizer, m.openFromLauncher)
	launcher.Register(ctx, m.cfg.Registrar, l, m.logger.Named("launcher"))
	m.logger.Info("brewer ready",
		zap.String("system", m.cfg.SystemID),
		zap.Bool("adapter", m.Adapter() != nil),
		zap.String("version", Version),
	)
	return nil
}

func (m *Module) openFromLauncher(ctx context.Context) error {
	s, err := m.OpenCreate(ctx)
	if err != nil {
		return err
	}
	if m.cfg.Present == nil {
		return nil
	}
	return m.cfg.Present(ctx, s)
}

// OpenCreate opens an editor on a new blueprint.
func (m *Module) OpenCreate(ctx context.Context) (*session.Session, error) {
	return m.open(session.Options{})
}

// OpenEdit opens an editor on the stored blueprint id.
func (m *Module) OpenEdit(ctx context.Context, id string) (*session.Session, error) {
	return m.OpenEditWithActor(ctx, id, "")
}

// OpenEditWithActor opens the stored blueprint id with actorID as the actor
// that exports update.
func (m *Module) OpenEditWithActor(ctx context.Context, id string, actorID string) (*session.Session, error) {
	b, err := m.gateway.LoadBlueprint(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load blueprint %s: %w", id, err)
	}
	return m.open(session.Options{Blueprint: &b, BlueprintID: id, ActorID: actorID})
}

// OpenActor opens an editor on the blueprint embedded in an exported actor.
// Further exports update that actor; saving stores a new blueprint.
func (m *Module) OpenActor(ctx context.Context, actorID string) (*session.Session, error) {
	actor, err := m.gateway.LoadActor(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("load actor %s: %w", actorID, err)
	}
	var (
		b  blueprint.Blueprint
		ok bool
	)
	if a := m.Adapter(); a != nil {
		b, ok = a.ActorToBlueprint(actor)
	} else {
		b, ok = adapter.EmbeddedBlueprint(actor)
	}
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeBlueprintNotEmbedded, "actor has no blueprint", map[string]string{"id": actorID})
	}
	return m.open(session.Options{Blueprint: &b, ActorID: actorID})
}

// Blueprints lists the stored blueprints.
func (m *Module) Blueprints(ctx context.Context) ([]gateway.Entry, error) {
	return m.gateway.ListBlueprints(ctx)
}

// Search runs a library search outside of any session.
func (m *Module) Search(ctx context.Context, q library.Query) ([]library.Result, error) {
	return m.library.Search(ctx, q)
}

func (m *Module) open(opts session.Options) (*session.Session, error) {
	return session.New(session.Config{
		SystemID:    m.cfg.SystemID,
		Adapter:     m.Adapter(),
		Gateway:     m.gateway,
		Library:     m.library,
		Resolver:    m.cfg.Store,
		Collections: m.cfg.Store,
		Settings:    m.cfg.Settings,
		Localizer:   m.cfg.Localizer,
		Notifier:    m.cfg.Notifier,
		Permissions: m.cfg.Permissions,
		Confirmer:   m.cfg.Confirmer,
		Logger:      m.logger.Named("session"),
		Now:         m.cfg.Now,
	}, opts)
}

package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/louisbranch/creature-brewer/internal/platform/errors"
	"github.com/louisbranch/creature-brewer/internal/platform/logging"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/adapter"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/blueprint"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/library"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/record"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/settings"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "creature-brewer.session"

// Localizer resolves localization keys.
type Localizer interface {
	Localize(key string) string
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Info(message string)
	Error(message string)
}

// Permissions reports whether the current user may write collections.
type Permissions interface {
	IsPrivileged() bool
}

// Prompt is a yes/no question.
type Prompt struct {
	Title string
	Text  string
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt Prompt) (bool, error)
}

// Gateway persists blueprints and actors.
type Gateway interface {
	SaveBlueprint(ctx context.Context, b blueprint.Blueprint, existingID string) (string, error)
	SaveActor(ctx context.Context, actor record.Actor, existingID string) (string, error)
}

// Searcher runs library searches.
type Searcher interface {
	Search(ctx context.Context, q library.Query) ([]library.Result, error)
}

// CollectionLister lists the collections offered as library sources.
type CollectionLister interface {
	ListCollections(ctx context.Context) ([]storage.Collection, error)
}

// Mode tells whether the blueprint has been stored.
type Mode string

const (
	ModeNew    Mode = "new"
	ModeLoaded Mode = "loaded"
)

// Config wires a session to its collaborators. Gateway and Settings are
// required. A nil Permissions denies writes and a nil Confirmer refuses to
// discard unsaved changes.
type Config struct {
	SystemID    string
	Adapter     adapter.Adapter
	Gateway     Gateway
	Library     Searcher
	Resolver    storage.Resolver
	Collections CollectionLister
	Settings    *settings.Settings
	Localizer   Localizer
	Notifier    Notifier
	Permissions Permissions
	Confirmer   Confirmer
	Logger      *zap.Logger
	Now         func() time.Time
}

// Options selects what the session opens.
type Options struct {
	// Blueprint is the blueprint to edit; nil starts a new one.
	Blueprint *blueprint.Blueprint
	// BlueprintID is the stored id of Blueprint, if any.
	BlueprintID string
	// ActorID is the id of a previous export of Blueprint, if any.
	ActorID string
}

// Session is one open editor.
type Session struct {
	cfg    Config
	logger *zap.Logger
	tracer trace.Tracer

	mu          sync.Mutex
	blueprint   blueprint.Blueprint
	blueprintID string
	actorID     string
	dirty       bool
	closed      bool
	results     []library.Result

	observersMu sync.Mutex
	observers   []subscription
	nextSub     int
}

// New opens a session.
func New(cfg Config, opts Options) (*Session, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if cfg.Settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Session{
		cfg:         cfg,
		logger:      logging.OrNop(cfg.Logger).With(zap.String("system", cfg.SystemID)),
		tracer:      otel.Tracer(tracerName),
		blueprintID: opts.BlueprintID,
		actorID:     opts.ActorID,
		results:     []library.Result{},
	}
	if opts.Blueprint != nil {
		s.blueprint = blueprint.Migrate(*opts.Blueprint)
	} else {
		s.blueprint = blueprint.Create(cfg.SystemID, cfg.Now())
	}
	return s, nil
}

// Blueprint returns a copy of the working blueprint.
func (s *Session) Blueprint() blueprint.Blueprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return blueprint.Clone(s.blueprint)
}

// BlueprintID returns the stored id, or "" for a new blueprint.
func (s *Session) BlueprintID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blueprintID
}

// ActorID returns the id of the last exported actor.
func (s *Session) ActorID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actorID
}

// Mode returns ModeLoaded once the blueprint has a stored id.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modeLocked()
}

// Dirty reports unsaved edits.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Closed reports whether Close has succeeded.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Results returns the last library search results.
func (s *Session) Results() []library.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]library.Result{}, s.results...)
}

// Adapter returns the active system adapter, or nil.
func (s *Session) Adapter() adapter.Adapter {
	return s.cfg.Adapter
}

func (s *Session) modeLocked() Mode {
	if s.blueprintID == "" {
		return ModeNew
	}
	return ModeLoaded
}

// run executes op under the session lock. When op reports an event the
// observers are called after the lock is released.
func (s *Session) run(op func() (EventKind, error)) error {
	event, err := s.locked(op)
	if event.Kind != "" {
		s.publish(event)
	}
	return err
}

// locked runs op while holding the lock and captures the event it reports.
func (s *Session) locked(op func() (EventKind, error)) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Event{}, apperrors.New(apperrors.CodeSessionClosed, "session is closed")
	}
	kind, err := op()
	if kind == "" {
		return Event{}, err
	}
	return Event{Kind: kind, BlueprintID: s.blueprintID, ActorID: s.actorID, Dirty: s.dirty}, err
}

func (s *Session) localize(key string) string {
	if s.cfg.Localizer == nil {
		return key
	}
	return s.cfg.Localizer.Localize(key)
}

func (s *Session) privileged() bool {
	return s.cfg.Permissions != nil && s.cfg.Permissions.IsPrivileged()
}

func (s *Session) notifyInfo(key string) {
	if s.cfg.Notifier != nil {
		s.cfg.Notifier.Info(s.localize(key))
	}
}

// notifyError shows the localized notice for err's code.
func (s *Session) notifyError(err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		s.logger.Error("unexpected session error", zap.Error(err))
	}
	if s.cfg.Notifier != nil {
		s.cfg.Notifier.Error(s.localize(code.MessageKey()))
	}
}

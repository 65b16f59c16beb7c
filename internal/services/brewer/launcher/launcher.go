// Package launcher registers the brewer entry point with an optional host
// sidebar.
package launcher

import (
	"context"

	"github.com/louisbranch/creature-brewer/internal/platform/logging"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/settings"
	"go.uber.org/zap"
)

const (
	// KeyLabel is the localization key of the launcher label.
	KeyLabel = "brewer.ui.launcher_label"
	// Icon is the icon class shown next to the label.
	Icon = "fa-solid fa-dragon"
)

// Localizer resolves localization keys.
type Localizer interface {
	Localize(key string) string
}

// Launcher is one sidebar entry.
type Launcher struct {
	ID     string
	Label  string
	Icon   string
	OnOpen func(ctx context.Context) error
}

// Registrar accepts sidebar entries.
type Registrar interface {
	RegisterLauncher(ctx context.Context, l Launcher) error
}

// New builds the brewer launcher. onOpen runs when the entry is clicked.
func New(localizer Localizer, onOpen func(ctx context.Context) error) Launcher {
	label := KeyLabel
	if localizer != nil {
		label = localizer.Localize(KeyLabel)
	}
	return Launcher{
		ID:     settings.ModuleID,
		Label:  label,
		Icon:   Icon,
		OnOpen: onOpen,
	}
}

// Register hands l to registrar. A nil registrar does nothing and a failed
// registration is only logged; it reports whether registration succeeded.
func Register(ctx context.Context, registrar Registrar, l Launcher, logger *zap.Logger) bool {
	if registrar == nil {
		return false
	}
	logger = logging.OrNop(logger)
	if err := registrar.RegisterLauncher(ctx, l); err != nil {
		logger.Warn("register launcher", zap.String("launcher", l.ID), zap.Error(err))
		return false
	}
	logger.Debug("registered launcher", zap.String("launcher", l.ID))
	return true
}

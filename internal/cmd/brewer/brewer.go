// Package brewer implements the brewer command: a terminal front end over
// the brewer module backed by a local SQLite database.
package brewer

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	platformcmd "github.com/louisbranch/creature-brewer/internal/platform/cmd"
	"github.com/louisbranch/creature-brewer/internal/platform/config"
	apperrors "github.com/louisbranch/creature-brewer/internal/platform/errors"
	"github.com/louisbranch/creature-brewer/internal/platform/logging"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/app"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/i18n"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/settings"
	"github.com/louisbranch/creature-brewer/internal/services/brewer/storage/sqlite"
	"go.uber.org/zap"
)

// Config holds brewer command configuration.
type Config struct {
	DBPath  string `env:"DB_PATH" envDefault:"data/brewer.db"`
	System  string `env:"SYSTEM" envDefault:"dnd5e"`
	Locale  string `env:"LOCALE" envDefault:"en-US"`
	GM      bool   `env:"GM" envDefault:"true"`
	Logging logging.Config

	// Command is the subcommand name and Args its arguments.
	Command string
	Args    []string
}

// ParseConfig reads CREATURE_BREWER_* variables, then the global flags, and
// splits off the subcommand.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnvWithPrefix(&cfg, config.EnvPrefix); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the brewer database")
	fs.StringVar(&cfg.System, "system", cfg.System, "active game system id")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "message locale")
	fs.BoolVar(&cfg.GM, "gm", cfg.GM, "act as a privileged user")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if fs.NArg() == 0 {
		return Config{}, errors.New("command is required: " + strings.Join(commandNames(), ", "))
	}
	cfg.Command = fs.Arg(0)
	cfg.Args = fs.Args()[1:]
	return cfg, nil
}

// Run executes the configured subcommand. stdin may be nil.
func Run(ctx context.Context, cfg Config, stdin io.Reader, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	handler, ok := commands[cfg.Command]
	if !ok {
		return fmt.Errorf("unknown command %q: want one of %s", cfg.Command, strings.Join(commandNames(), ", "))
	}

	logger := logging.NewOrNop(cfg.Logging)
	defer func() { _ = logger.Sync() }()

	c, err := open(ctx, cfg, logger, errOut)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.store.Close(); err != nil {
			logger.Warn("close store", zap.Error(err))
		}
	}()

	c.stdin = stdin
	c.out = out
	c.errOut = errOut
	return handler(ctx, c, cfg.Args)
}

// cli is what every subcommand works with.
type cli struct {
	module    *app.Module
	store     *sqlite.Store
	settings  *settings.Settings
	localizer *i18n.Localizer
	logger    *zap.Logger
	stdin     io.Reader
	out       io.Writer
	errOut    io.Writer
}

func open(ctx context.Context, cfg Config, logger *zap.Logger, errOut io.Writer) (*cli, error) {
	defaults, err := settings.LoadDefaults()
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	localizer := i18n.New(nil, cfg.Locale)
	brewerSettings := settings.New(store, defaults)
	module, err := app.New(app.Config{
		SystemID:    cfg.System,
		Store:       store,
		Settings:    brewerSettings,
		Localizer:   localizer,
		Notifier:    writerNotifier{w: errOut},
		Permissions: staticPermissions(cfg.GM),
		Logger:      logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := module.Ready(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return &cli{
		module:    module,
		store:     store,
		settings:  brewerSettings,
		localizer: localizer,
		logger:    logger,
	}, nil
}

type staticPermissions bool

func (p staticPermissions) IsPrivileged() bool { return bool(p) }

// writerNotifier prints session notices as lines.
type writerNotifier struct {
	w io.Writer
}

func (n writerNotifier) Info(message string) {
	fmt.Fprintln(n.w, message)
}

func (n writerNotifier) Error(message string) {
	fmt.Fprintln(n.w, "error: "+message)
}

// parseValue turns a command-line value into a field value. JSON literals
// other than strings are decoded; everything else is kept as text.
func parseValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return raw
	}
	var value any
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		return raw
	}
	return value
}

// isFieldError reports whether err rejected a field assignment.
func isFieldError(err error) bool {
	return apperrors.HasCode(err, apperrors.CodeInvalidField)
}

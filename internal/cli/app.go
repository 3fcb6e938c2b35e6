// Package cli wires internal/config, internal/store, internal/tools,
// and internal/audit into runnable Cobra commands.
package cli

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/docindex/internal/audit"
	"github.com/roach88/docindex/internal/config"
	"github.com/roach88/docindex/internal/embeddings"
	"github.com/roach88/docindex/internal/store"
	"github.com/roach88/docindex/internal/tools"
)

const (
	toolVersion   = "1"
	serverVersion = "docindex-0"
)

// App holds everything a command needs: the opened store, resolved
// config, provider registry, and the best-effort audit logger.
type App struct {
	Config    config.Config
	Store     *store.Store
	Providers tools.Providers
	Audit     *audit.Logger
	Log       *slog.Logger
}

// RootOptions holds global flags shared by every subcommand.
type RootOptions struct {
	Database string
	CUEPath  string
	Verbose  bool
	Format   string
}

// NewApp resolves config, opens the store at opts.Database (falling
// back to the resolved config's DBPath when unset), and builds the
// provider registry from the resolved secrets.
func NewApp(opts *RootOptions) (*App, error) {
	cfg, err := config.Load(opts.CUEPath)
	if err != nil {
		return nil, err
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.DBPath
	}
	cfg.DBPath = dbPath

	s, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}

	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	providers := tools.Providers{
		"local": embeddings.NewLocalProvider("local"),
	}
	if cfg.ProviderAPIKey != "" && cfg.ProviderBaseURL != "" {
		providers["default"] = embeddings.NewHTTPProvider("default", cfg.ProviderBaseURL, cfg.ProviderAPIKey)
	}

	seq := audit.NewSeqCounter()
	auditLogger := audit.NewLogger(s, seq, logger)

	return &App{
		Config:    cfg,
		Store:     s,
		Providers: providers,
		Audit:     auditLogger,
		Log:       logger,
	}, nil
}

// openApp builds a formatter before constructing the App, so a config
// or store-open failure is reported through the same formatted-error
// path as a tool failure, rather than a second, differently-shaped
// message from main.
func openApp(opts *RootOptions, cmd *cobra.Command) (*App, *OutputFormatter, error) {
	f := newFormatter(opts, cmd)
	app, err := NewApp(opts)
	if err != nil {
		_ = f.Error("ERR_STORE_OPEN", err.Error(), nil)
		return nil, f, NewExitError(ExitCommandError, "open store")
	}
	return app, f, nil
}

// Close drains the audit queue and closes the store. Call via defer
// from every command's RunE.
func (a *App) Close() {
	a.Audit.Close()
	if err := a.Store.Close(); err != nil {
		a.Log.Warn("close store failed", "error", err)
	}
}

func newRequestID() string {
	return uuid.Must(uuid.NewV7()).String()
}

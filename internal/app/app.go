package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"

	"github.com/five82/xrayview/internal/config"
	"github.com/five82/xrayview/internal/logging"
	"github.com/five82/xrayview/internal/prefs"
	"github.com/five82/xrayview/internal/scans"
	"github.com/five82/xrayview/internal/ui"
	"github.com/five82/xrayview/internal/xray"
)

// Options configure xrayview.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/xrayview/prefs.toml
	APIURL     string // overrides config and environment
	Debug      bool
}

// Env is the set of wired components shared by the TUI and the CLI commands.
type Env struct {
	Config config.Config
	Log    zerolog.Logger
	API    *xray.Client
	Scans  *scans.Client

	logCloser io.Closer
}

// Setup loads configuration and builds the API client, the scan query client
// and the file logger.
func Setup(opts Options) (*Env, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		if err := cfg.SetAPIURL(opts.APIURL); err != nil {
			return nil, err
		}
	}

	logger, closer, err := logging.New(logging.Options{Path: cfg.LogPath(), Debug: opts.Debug})
	if err != nil {
		return nil, err
	}

	api, err := xray.NewClient(cfg.APIURL,
		xray.WithLogger(logger),
		xray.WithUploadTimeout(cfg.UploadTimeout),
	)
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	logger.Info().
		Str("api", cfg.APIURL).
		Str("media", cfg.MediaURL).
		Msg("xrayview starting")

	return &Env{
		Config:    cfg,
		Log:       logger,
		API:       api,
		Scans:     scans.NewClient(api, nil, logger.With().Str("component", "scans").Logger()),
		logCloser: closer,
	}, nil
}

// Close stops in-flight list queries and flushes the log file.
func (e *Env) Close() error {
	e.Scans.Close()
	return e.logCloser.Close()
}

// Run boots the TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	env, err := Setup(opts)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	userPrefs := prefs.Load(opts.PrefsPath)

	startDir, _ := os.Getwd()

	// The alternate screen is active; keep the browser launcher quiet.
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard

	err = ui.Run(ui.Options{
		Context:        ctx,
		API:            env.API,
		Scans:          env.Scans,
		MediaURL:       env.Config.MediaURL,
		SearchDebounce: env.Config.SearchDebounce,
		ThemeName:      userPrefs.Theme,
		PrefsPath:      opts.PrefsPath,
		LogPath:        env.Config.LogPath(),
		Logger:         env.Log.With().Str("component", "ui").Logger(),
		OpenURL:        browser.OpenURL,
		UploadDir:      userPrefs.UploadDir,
		StartDir:       startDir,
	})
	if err != nil {
		env.Log.Error().Err(err).Msg("ui exited with error")
		return err
	}
	env.Log.Info().Msg("xrayview stopped")
	return nil
}

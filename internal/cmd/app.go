package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sflowg/dingtalk/internal/config"
	"github.com/sflowg/dingtalk/plugins/dingtalk"
	"github.com/sflowg/dingtalk/runtime"
	"github.com/sflowg/dingtalk/runtime/credstore"
)

const pluginName = "dingtalk"

// app is a container with the DingTalk plugin registered and initialized.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	container *runtime.Container
}

func newApp(ctx context.Context, cfg *config.Config, logOut io.Writer) (*app, error) {
	level := cfg.Level()
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	store, err := newStore(ctx, cfg.Credentials)
	if err != nil {
		return nil, err
	}

	container := runtime.NewContainer(logger, store, runtime.NewHTTPClient(cfg.HTTP))

	plugin := &dingtalk.Plugin{}
	if err := runtime.InitializeConfig(&plugin.Config, cfg.Plugin); err != nil {
		return nil, fmt.Errorf("invalid plugin config: %w", err)
	}
	if err := container.RegisterPlugin(pluginName, plugin); err != nil {
		return nil, err
	}
	if err := container.Initialize(ctx); err != nil {
		return nil, err
	}

	logger.DebugContext(ctx, "Container ready",
		"credential_store", cfg.Credentials.Store,
		"nodes", len(container.Descriptions()))

	return &app{cfg: cfg, logger: logger, container: container}, nil
}

func newStore(ctx context.Context, cfg config.CredentialsConfig) (runtime.CredentialStore, error) {
	var store runtime.CredentialStore
	switch cfg.Store {
	case "disk":
		store = credstore.NewDiskv(cfg.Dir)
	default:
		store = credstore.NewMemory()
	}

	for name, creds := range cfg.Credentials() {
		if err := credstore.Seed(ctx, store, name, creds); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.container.Shutdown(ctx); err != nil {
		a.logger.ErrorContext(ctx, "Shutdown failed", "error", err)
	}
}

// setup loads the config named by --config and builds the app. Logs go to stderr
// so stdout stays machine readable.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newApp(ctx, cfg, os.Stderr)
}

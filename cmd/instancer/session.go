package main

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/felixgeelhaar/instancer/internal/adapters/accounts"
	"github.com/felixgeelhaar/instancer/internal/adapters/checkpointstore"
	"github.com/felixgeelhaar/instancer/internal/adapters/command"
	"github.com/felixgeelhaar/instancer/internal/adapters/filesystem"
	"github.com/felixgeelhaar/instancer/internal/adapters/logging"
	"github.com/felixgeelhaar/instancer/internal/app"
	"github.com/felixgeelhaar/instancer/internal/config"
	"github.com/felixgeelhaar/instancer/internal/ports"
)

// Host wiring, replaced in tests.
var (
	newHost = func(logger ports.Logger) app.Host {
		return app.Host{
			Runner: command.NewRealRunner(
				command.WithEnv("DEBIAN_FRONTEND=noninteractive"),
				command.WithLogger(logger),
			),
			FS:       filesystem.NewRealFileSystem(),
			Accounts: accounts.NewPasswd(),
		}
	}

	openStore = checkpointstore.Open

	requireRoot = func() error {
		if os.Geteuid() != 0 {
			return errors.New("install must run as root: it creates users, installs packages and writes to /etc")
		}
		return nil
	}
)

// session holds what one command invocation needs.
type session struct {
	cfg       *config.Config
	logger    ports.Logger
	store     checkpointstore.ClosableStore
	installer *app.Installer
}

// openSession loads configuration and connects the checkpoint store. With
// quiet set, log output is dropped so it cannot tear a full-screen view.
func openSession(ctx context.Context, out io.Writer, quiet bool) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	var logger ports.Logger = logging.NewNopLogger()
	if !quiet {
		if logger, err = newLogger(cfg, os.Stderr); err != nil {
			return nil, err
		}
	}

	host := newHost(logger)
	store, err := openStore(ctx, cfg.Checkpoint, host.FS)
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		installer: app.NewInstaller(cfg, host, store, logger, out),
	}, nil
}

// Close releases the checkpoint store.
func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "closing checkpoint store", ports.Err(err))
	}
}

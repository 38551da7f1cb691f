package cli

import (
	"fmt"

	"github.com/dshills/patchkit/internal/config"
	"github.com/dshills/patchkit/internal/diagnose"
	"github.com/dshills/patchkit/internal/edit"
	"github.com/dshills/patchkit/internal/gate"
	"github.com/dshills/patchkit/internal/logging"
	"github.com/dshills/patchkit/internal/server"
	"github.com/dshills/patchkit/internal/txn"
	"github.com/dshills/patchkit/internal/vfs"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg config.Config
	log *logging.Logger
	srv *server.Server
}

// newApp loads configuration and wires the engine, gate, coordinator,
// classifier, and server.
func newApp() (*app, error) {
	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.NewLoader(cfgPath).Load()
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	log, err := logging.New(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}

	fsys := vfs.NewOSFS()

	engine := edit.New(fsys,
		edit.WithLogger(log),
		edit.WithBackupSuffix(cfg.Backup.Suffix),
	)
	g := gate.New(fsys, gate.WithMaxFileSize(cfg.Limits.MaxFileSize))
	coord := txn.New(fsys, engine, txn.WithLogger(log))
	classifier := diagnose.New(fsys,
		diagnose.WithLogger(log),
		diagnose.WithWindows(cfg.Context.NoMatchWindow, cfg.Context.AmbiguousWindow),
		diagnose.WithMaxLocations(cfg.Context.MaxLocations),
	)

	return &app{
		cfg: cfg,
		log: log,
		srv: server.New(g, coord, classifier, server.WithLogger(log)),
	}, nil
}

// close releases app resources.
func (a *app) close() {
	if a.log != nil {
		_ = a.log.Close()
	}
}

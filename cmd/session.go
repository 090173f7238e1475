package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/schemamend/schemamend/internal/catalog"
	"github.com/schemamend/schemamend/internal/config"
	"github.com/schemamend/schemamend/internal/db"
	"github.com/schemamend/schemamend/internal/logging"
	"github.com/schemamend/schemamend/internal/reconcile"
	"github.com/schemamend/schemamend/internal/registry"
)

// session bundles everything a subcommand needs: config, a live pool, the
// expected-schema registry, and the orchestrator built over them.
type session struct {
	cfg    *config.Config
	pool   *db.Pool
	reader *catalog.Postgres
	reg    *registry.Registry
	orch   *reconcile.Orchestrator
	logger *slog.Logger
}

func newSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(ctx, cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.Setup(level, cfg.Logging.Directory)
	if err != nil {
		return nil, fmt.Errorf("setting up logging: %w", err)
	}

	pool, err := db.Connect(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	reg, err := loadRegistry(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	reader := catalog.NewPostgres(pool, cfg.Database.Schema)
	return &session{
		cfg:    cfg,
		pool:   pool,
		reader: reader,
		reg:    reg,
		orch:   reconcile.New(pool, reader, reg, logger),
		logger: logger,
	}, nil
}

func (s *session) Close() {
	s.pool.Close()
}

// loadRegistry returns the compiled-in schemas, overlaid with the optional
// registry file from the config.
func loadRegistry(cfg *config.Config) (*registry.Registry, error) {
	reg := registry.Default()
	if cfg.Registry.Path == "" {
		return reg, nil
	}
	overlay, err := registry.LoadYAML(cfg.Registry.Path)
	if err != nil {
		return nil, fmt.Errorf("loading registry overlay: %w", err)
	}
	reg.MergeFrom(overlay)
	return reg, nil
}

// targetTables resolves positional args to the table list, nil meaning all
// registry tables.
func targetTables(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	return args
}

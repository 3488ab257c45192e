package main

import (
	"fmt"
	"log/slog"

	"github.com/codewithboateng/policylint/internal/rules"
	"github.com/codewithboateng/policylint/internal/rulesdsl"
	"github.com/codewithboateng/policylint/internal/shared"
	"github.com/codewithboateng/policylint/internal/storage"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	dbPath     string
	outDir     string
}

// setup loads config and installs the logger. Precedence: flags > config
// > defaults.
func (g *globals) setup() (shared.Config, *slog.Logger, error) {
	cfg, err := shared.LoadConfig(g.configPath)
	if err != nil {
		return cfg, nil, err
	}
	logger := shared.InitLogger(cfg.Logging.Format, cfg.Logging.Level)
	if g.dbPath != "" {
		cfg.Database.DSN = g.dbPath
	}
	if g.outDir != "" {
		cfg.Reporting.OutDir = g.outDir
	}
	return cfg, logger, nil
}

func openDB(cfg shared.Config) (*storage.DB, error) {
	if cfg.Database.Driver != "" && cfg.Database.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	db, err := storage.OpenSQLite(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// buildRegistry loads the configured packs (the embedded default when none)
// and applies the rule settings.
func buildRegistry(cfg shared.Config) (*rules.Registry, error) {
	settings, err := cfg.RuleSettings()
	if err != nil {
		return nil, err
	}
	packs, err := rulesdsl.LoadFiles(cfg.Rules.Packs...)
	if err != nil {
		return nil, err
	}
	return rules.NewRegistry(settings, packs...)
}

package main

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/catalog/backend/internal/bootstrap"
	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/infrastructure/config"
	"github.com/catalog/backend/internal/infrastructure/logger"
	"github.com/catalog/backend/internal/infrastructure/persistence"
)

// app carries what every subcommand needs. The database is opened only by
// the commands that use the catalog.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *persistence.Database
	logLevel string
	tier     string
	timeout  time.Duration
	cancel   context.CancelFunc
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mediactl",
		Short: "Operate the catalog media pipeline",
		Long: `mediactl imports images into the media catalog, resolves legacy image
URLs to storage keys, renders viewable and signed URLs, and reports objects
that no catalog record references.

Configuration is read like the server's: config.toml, .env files and
CATALOG_* environment variables.`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.init,
		PersistentPostRunE: a.close,
	}

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.tier, "tier", "", "storage tier (public, restricted); defaults to media.default_tier")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 10*time.Minute, "overall command timeout")

	root.AddCommand(
		newImportCmd(a),
		newResolveCmd(a),
		newURLCmd(a),
		newSignCmd(a),
		newOrphansCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(&logger.Config{Level: a.logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, log

	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	a.cancel = cancel
	cmd.SetContext(logger.WithContext(ctx, log))
	return nil
}

func (a *app) close(*cobra.Command, []string) error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return err
		}
		a.db = nil
	}
	if a.log != nil {
		_ = logger.Sync(a.log)
	}
	return nil
}

// media opens the database and builds the asset service
func (a *app) media() (*bootstrap.Media, error) {
	if a.db == nil {
		db, err := bootstrap.OpenDatabase(a.cfg, a.log)
		if err != nil {
			return nil, err
		}
		a.db = db
	}
	return bootstrap.NewMedia(a.cfg, a.db, a.log)
}

// selectedTier returns the --tier flag or the configured default
func (a *app) selectedTier() (media.Tier, error) {
	if a.tier != "" {
		return media.ParseTier(a.tier)
	}
	return media.ParseTier(a.cfg.Media.DefaultTier)
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

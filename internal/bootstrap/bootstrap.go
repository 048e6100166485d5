// Package bootstrap wires configuration into the media components shared by
// the server and the CLI.
package bootstrap

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	mediaapp "github.com/catalog/backend/internal/application/media"
	"github.com/catalog/backend/internal/domain/media"
	"github.com/catalog/backend/internal/infrastructure/config"
	"github.com/catalog/backend/internal/infrastructure/imaging"
	"github.com/catalog/backend/internal/infrastructure/logger"
	"github.com/catalog/backend/internal/infrastructure/migration"
	"github.com/catalog/backend/internal/infrastructure/persistence"
	"github.com/catalog/backend/internal/infrastructure/storage"
	"github.com/catalog/backend/internal/infrastructure/telemetry"
	"github.com/catalog/backend/migrations"
)

const slowQueryThreshold = 200 * time.Millisecond

// OpenDatabase connects to the configured database and brings the schema up
// to date: sqlite through gorm AutoMigrate, postgres through the embedded
// migrations when database.auto_migrate is set.
func OpenDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), slowQueryThreshold)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterGormTracing(db.DB, db.Driver); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("register gorm tracing: %w", err)
		}
	}

	switch {
	case db.Driver == "sqlite":
		err = db.AutoMigrate()
	case cfg.Database.AutoMigrate:
		err = migrateUp(db, log)
	}
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateUp(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.NewEmbedded(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	// closing the migrator would close the shared *sql.DB
	return m.Up()
}

// Storage bundles the components that need no database
type Storage struct {
	Settings     *storage.SettingsResolver
	Holder       *storage.ClientHolder
	Gateway      *storage.Gateway
	Resolver     *storage.KeyResolver
	Materializer *mediaapp.URLMaterializer
}

// NewStorage builds the storage gateway and the key resolver. Tier backends
// are created on first use, so an unconfigured tier only fails the
// operations that touch it.
func NewStorage(cfg *config.Config, log *zap.Logger) *Storage {
	settings := storage.NewSettingsResolver(&cfg.Storage)
	factory := storage.S3Factory(log)
	if cfg.Storage.Backend == "memory" {
		factory = storage.MemoryFactory()
	}
	holder := storage.NewClientHolder(settings, factory)
	gateway := storage.NewGateway(holder, log.Named("storage"))

	resolver := storage.NewKeyResolverFromSettings(settings, cfg.Media.ProxyPrefix)
	return &Storage{
		Settings: settings,
		Holder:   holder,
		Gateway:  gateway,
		Resolver: resolver,
		Materializer: mediaapp.NewURLMaterializer(gateway, resolver, mediaapp.MaterializerConfig{
			DevProxy:     cfg.Media.DevProxy,
			ProxyPrefix:  cfg.Media.ProxyPrefix,
			SignedURLTTL: cfg.Storage.SignedURLTTL,
		}),
	}
}

// Media adds the catalog repository and the asset service to Storage
type Media struct {
	*Storage
	Repository *persistence.GormAssetRepository
	Service    *mediaapp.AssetService
}

// NewMedia builds the asset service on top of NewStorage
func NewMedia(cfg *config.Config, db *persistence.Database, log *zap.Logger, opts ...mediaapp.ServiceOption) (*Media, error) {
	defaultTier, err := media.ParseTier(cfg.Media.DefaultTier)
	if err != nil {
		return nil, err
	}

	st := NewStorage(cfg, log)
	repo := persistence.NewGormAssetRepository(db.DB)
	opts = append([]mediaapp.ServiceOption{mediaapp.WithLogger(log.Named("media"))}, opts...)
	service := mediaapp.NewAssetService(
		repo,
		mediaapp.NewDerivativeGenerator(imaging.NewProcessor(), st.Gateway),
		st.Gateway,
		st.Resolver,
		st.Materializer,
		mediaapp.ServiceConfig{
			MaxUploadSize:    cfg.Media.MaxUploadSize,
			AllowedMimeTypes: cfg.Media.AllowedMimeTypes,
			DefaultTier:      defaultTier,
			IdempotencyTTL:   cfg.Media.IdempotencyTTL,
		},
		opts...,
	)

	return &Media{Storage: st, Repository: repo, Service: service}, nil
}

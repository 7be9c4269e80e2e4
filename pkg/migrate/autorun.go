package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/readerpos/pkg/config"
	"github.com/angelmondragon/readerpos/pkg/db"
	"github.com/angelmondragon/readerpos/pkg/logger"
)

// MaybeRun brings the receipt ledger schema up to date at startup when
// READERPOS_DB_AUTO_MIGRATE is set.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.DB.AutoMigrate {
		logg.Debug(ctx, "migrate.autorun_disabled")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	ctx = logg.WithField(ctx, "driver", cfg.DB.Driver)

	if err := Run(ctx, sqlDB, cfg.DB.Driver, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	version, err := Version(ctx, sqlDB, cfg.DB.Driver)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	logg.Info(logg.WithField(ctx, "schema_version", version), "migrate.autorun_completed")
	return nil
}

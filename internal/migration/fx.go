// Package migration creates the backing tables on startup so a SQL-backed
// deployment is usable out of the box. Memory mode has nothing to migrate.
package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	eventlogdomain "github.com/smallbiznis/subsync/internal/eventlog/domain"
	subscriberdomain "github.com/smallbiznis/subsync/internal/subscriber/domain"
	"github.com/smallbiznis/subsync/pkg/db"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(handle *db.Handle, log *zap.Logger) error {
		if !handle.Enabled() {
			return nil
		}
		if err := handle.Gorm.AutoMigrate(
			&subscriberdomain.Record{},
			&eventlogdomain.Entry{},
		); err != nil {
			return err
		}
		log.Info("database schema migrated")
		return nil
	}),
)

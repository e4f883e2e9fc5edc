// Package db opens the optional SQL backing store. When DATABASE_TYPE is
// "memory" the handle carries no connection and the in-memory placeholder
// implementations are used instead.
package db

import (
	"github.com/smallbiznis/subsync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Handle wraps the optional gorm connection. Gorm is nil in memory mode.
type Handle struct {
	Gorm *gorm.DB
}

// Enabled reports whether a SQL store is connected.
func (h *Handle) Enabled() bool { return h != nil && h.Gorm != nil }

func New(cfg config.Config, log *zap.Logger) (*Handle, error) {
	if !cfg.UsesDatabase() {
		log.Info("using in-memory subscriber store", zap.String("db_type", cfg.DBType))
		return &Handle{}, nil
	}

	dialector, err := Dialect(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	log.Info("database connected",
		zap.String("db_type", cfg.DBType),
		zap.String("db_name", cfg.DBName),
	)
	return &Handle{Gorm: conn}, nil
}

// Module wires the database handle.
var Module = fx.Module("db",
	fx.Provide(New),
)

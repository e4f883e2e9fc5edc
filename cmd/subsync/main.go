package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/subsync/internal/clock"
	"github.com/smallbiznis/subsync/internal/config"
	"github.com/smallbiznis/subsync/internal/eventlog"
	"github.com/smallbiznis/subsync/internal/logger"
	"github.com/smallbiznis/subsync/internal/migration"
	"github.com/smallbiznis/subsync/internal/observability"
	"github.com/smallbiznis/subsync/internal/providers/billing"
	"github.com/smallbiznis/subsync/internal/reconcile"
	"github.com/smallbiznis/subsync/internal/server"
	"github.com/smallbiznis/subsync/internal/subscriber"
	"github.com/smallbiznis/subsync/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		subscriber.Module,
		eventlog.Module,
		billing.Module,
		reconcile.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

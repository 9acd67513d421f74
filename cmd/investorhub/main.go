package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/investorhub/internal/clock"
	"github.com/smallbiznis/investorhub/internal/config"
	"github.com/smallbiznis/investorhub/internal/migration"
	"github.com/smallbiznis/investorhub/internal/observability"
	"github.com/smallbiznis/investorhub/internal/server"
	"github.com/smallbiznis/investorhub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Record store, investor service and HTTP API
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

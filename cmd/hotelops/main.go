package main

import (
	"github.com/smallbiznis/hotelops/internal/clock"
	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/smallbiznis/hotelops/internal/migration"
	"github.com/smallbiznis/hotelops/internal/observability"
	"github.com/smallbiznis/hotelops/internal/ratelimit"
	"github.com/smallbiznis/hotelops/internal/report"
	"github.com/smallbiznis/hotelops/internal/server"
	"github.com/smallbiznis/hotelops/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		migration.Module,

		// Reporting
		report.Module,
		ratelimit.Module,
		server.Module,
	)
	app.Run()
}

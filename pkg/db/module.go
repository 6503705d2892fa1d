package db

import (
	"context"
	"time"

	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/smallbiznis/hotelops/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormprometheus "gorm.io/plugin/prometheus"
)

var Module = fx.Module("db",
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Log       *zap.Logger
}

// New opens the configured database, applies pool limits and registers the
// tracing and Prometheus plugins.
func New(p Params) (*gorm.DB, error) {
	dialect, err := Dialect(p.Config)
	if err != nil {
		return nil, err
	}

	gormLogCfg := logger.DefaultGormLoggerConfig()
	if p.Config.DBLogQueries {
		gormLogCfg = logger.DebugGormLoggerConfig()
	}
	conn, err := gorm.Open(dialect, &gorm.Config{
		Logger:  logger.NewGormLogger(gormLogCfg),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	applyPool(p.Config, sqlDB.SetMaxIdleConns, sqlDB.SetMaxOpenConns, sqlDB.SetConnMaxLifetime, sqlDB.SetConnMaxIdleTime)

	if err := conn.Use(otelgorm.NewPlugin(otelgorm.WithDBName(p.Config.DBName))); err != nil {
		return nil, err
	}
	if err := conn.Use(gormprometheus.New(gormprometheus.Config{
		DBName:          p.Config.DBName,
		RefreshInterval: 15,
		StartServer:     false,
	})); err != nil {
		return nil, err
	}

	log := p.Log.Named("db")
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := sqlDB.PingContext(ctx); err != nil {
				log.Error("database ping failed", zap.String("type", p.Config.DBType), zap.Error(err))
				return err
			}
			log.Info("database connected", zap.String("type", p.Config.DBType), zap.String("name", p.Config.DBName))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return sqlDB.Close()
		},
	})

	return conn, nil
}

func applyPool(
	cfg config.Config,
	setMaxIdle func(int),
	setMaxOpen func(int),
	setLifetime func(time.Duration),
	setIdleTime func(time.Duration),
) {
	if cfg.DBMaxIdleConn > 0 {
		setMaxIdle(cfg.DBMaxIdleConn)
	}
	if cfg.DBMaxOpenConn > 0 {
		setMaxOpen(cfg.DBMaxOpenConn)
	}
	if cfg.DBConnMaxLifetime > 0 {
		setLifetime(time.Duration(cfg.DBConnMaxLifetime) * time.Second)
	}
	if cfg.DBConnMaxIdleTime > 0 {
		setIdleTime(time.Duration(cfg.DBConnMaxIdleTime) * time.Second)
	}
}

package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/appsnprojectsstpl-tech/sakambari/internal/catalog"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/clock"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/config"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/customer"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/events"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/materializer"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/migration"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/observability/logger"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/observability/tracing"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/order"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/seed"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/server"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/subscription"
	"github.com/appsnprojectsstpl-tech/sakambari/pkg/db"
)

var version = "dev"

func main() {
	dateFlag := flag.String("date", "", "materialize orders for this date (YYYY-MM-DD) and exit")
	flag.Parse()

	opts := []fx.Option{
		config.Module,
		logger.Module,
		tracing.Module,
		fx.Provide(func() (*snowflake.Node, error) {
			return snowflake.NewNode(1)
		}),
		db.Module,
		clock.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if cfg.Bootstrap.SeedDemoData {
				return seed.EnsureDemoData(conn)
			}
			return nil
		}),
		subscription.Module,
		catalog.Module,
		customer.Module,
		order.Module,
		events.Module,
		materializer.Module,
	}

	if *dateFlag != "" {
		target, err := time.Parse("2006-01-02", *dateFlag)
		if err != nil {
			log.Fatalf("invalid -date %q: %v", *dateFlag, err)
		}
		opts = append(opts, fx.Invoke(func(lc fx.Lifecycle, driver *materializer.Driver, shutdowner fx.Shutdowner, zlog *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						summary, err := driver.Run(context.Background(), target)
						zlog.Info("one-shot materialization finished",
							zap.String("date", target.Format("2006-01-02")),
							zap.Int("materialized", summary.Materialized),
							zap.Int("skipped_duplicate", summary.SkippedDuplicate),
							zap.Int("skipped_missing_entity", summary.SkippedMissingEntity),
							zap.Int("failed", summary.Failed),
							zap.Error(err),
						)
						code := 0
						if err != nil {
							code = 1
						}
						_ = shutdowner.Shutdown(fx.ExitCode(code))
					}()
					return nil
				},
			})
		}))
	} else {
		opts = append(opts, server.Module)
	}

	fx.New(opts...).Run()
}

package materializer

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	catalogrepo "github.com/appsnprojectsstpl-tech/sakambari/internal/catalog/repository"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/config"
	customerrepo "github.com/appsnprojectsstpl-tech/sakambari/internal/customer/repository"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/observability/metrics"
)

var Module = fx.Module("materializer",
	fx.Provide(func(cfg config.Config) *metrics.MaterializerMetrics {
		return metrics.MaterializerWithConfig(metrics.Config{
			ServiceName: cfg.Tracing.ServiceName,
			Environment: cfg.Environment,
		})
	}),
	fx.Provide(func(cfg config.Config, log *zap.Logger, customers customerrepo.Repository, products catalogrepo.Repository) *Resolver {
		return NewResolver(log, customers, products, cfg.Materializer)
	}),
	fx.Provide(NewDriver),
)

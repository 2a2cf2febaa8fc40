package order

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/appsnprojectsstpl-tech/sakambari/internal/config"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/observability/metrics"
	"github.com/appsnprojectsstpl-tech/sakambari/internal/order/repository"
)

var Module = fx.Module("order",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config, log *zap.Logger, m *metrics.MaterializerMetrics) *repository.Allocator {
		return repository.NewAllocator(
			log,
			cfg.Materializer.CounterMaxRetries,
			cfg.Materializer.CounterRetryBase,
			m,
		)
	}),
)

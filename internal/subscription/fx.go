package subscription

import (
	"go.uber.org/fx"

	"github.com/appsnprojectsstpl-tech/sakambari/internal/subscription/repository"
)

var Module = fx.Module("subscription",
	fx.Provide(repository.Provide),
)

package catalog

import (
	"go.uber.org/fx"

	"github.com/appsnprojectsstpl-tech/sakambari/internal/catalog/repository"
)

var Module = fx.Module("catalog",
	fx.Provide(repository.Provide),
)

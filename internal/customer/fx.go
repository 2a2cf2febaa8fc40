package customer

import (
	"go.uber.org/fx"

	"github.com/appsnprojectsstpl-tech/sakambari/internal/customer/repository"
)

var Module = fx.Module("customer",
	fx.Provide(repository.Provide),
)

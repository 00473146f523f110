package di

import (
	"go.uber.org/fx"

	"github.com/campuseats/canteen/internal/adapter/stripe"
	"github.com/campuseats/canteen/internal/app"
	"github.com/campuseats/canteen/internal/cache"
	"github.com/campuseats/canteen/internal/config"
	"github.com/campuseats/canteen/internal/logger"
	"github.com/campuseats/canteen/internal/pkg/auth"
	"github.com/campuseats/canteen/internal/server/http/handlers"
	"github.com/campuseats/canteen/internal/server/http/router"
	"github.com/campuseats/canteen/internal/storage/postgres"
	"github.com/campuseats/canteen/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		postgres.Module,
		stripe.Module,
		cache.Module,
		usecase.Module,
		fx.Provide(func(f *app.CanteenFacade) handlers.CanteenFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/campuseats/canteen/internal/adapter/stripe"
	"github.com/campuseats/canteen/internal/cache"
	"github.com/campuseats/canteen/internal/config"
	"github.com/campuseats/canteen/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newCheckoutUseCase,
	NewReconcileUseCase,
	newOrderUseCase,
	NewNotificationUseCase,
)

type checkoutParams struct {
	fx.In

	Payments  repository.PaymentRepository
	Menu      repository.MenuRepository
	Processor stripe.Client
	Config    *config.Config
	Logger    *slog.Logger
}

func newCheckoutUseCase(p checkoutParams) *CheckoutUseCase {
	return NewCheckoutUseCase(p.Payments, p.Menu, p.Processor, p.Config.PublicBaseURL, p.Config.Currency, p.Logger)
}

type orderParams struct {
	fx.In

	Orders repository.OrderRepository
	Menu   repository.MenuRepository
	Views  *cache.OrderViewCache
	Logger *slog.Logger
}

func newOrderUseCase(p orderParams) *OrderUseCase {
	return NewOrderUseCase(p.Orders, p.Menu, p.Views, p.Logger)
}

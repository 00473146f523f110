package stripe

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/campuseats/canteen/internal/config"
)

// Module exposes payment processor client implementation to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewAPIClient(p.Config.StripeSecretKey, p.Config.StripeWebhookSecret, p.Logger)
}

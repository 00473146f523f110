package cache

import (
	"go.uber.org/fx"

	"github.com/campuseats/canteen/internal/config"
)

// Module provides the order view cache to the fx container.
var Module = fx.Provide(func(cfg *config.Config) *OrderViewCache {
	return New(cfg.CacheTTL)
})

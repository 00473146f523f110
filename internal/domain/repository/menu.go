package repository

import (
	"context"

	"github.com/campuseats/canteen/internal/domain/model"
)

// MenuRepository exposes the catalog read model used for re-pricing.
type MenuRepository interface {
	GetByIDs(ctx context.Context, ids []int64) (map[int64]model.MenuItem, error)
}

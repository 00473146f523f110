package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	domainErrors "github.com/campuseats/canteen/internal/domain/errors"
	"github.com/campuseats/canteen/internal/domain/model"
	"github.com/campuseats/canteen/internal/domain/repository"
)

// repriceCart validates the cart and replaces every client-supplied price with
// the authoritative catalog price. The charge is what the menu says, never
// what the client says.
func repriceCart(ctx context.Context, menu repository.MenuRepository, items []model.CartItem) ([]model.CartItem, decimal.Decimal, error) {
	if len(items) == 0 {
		return nil, decimal.Zero, domainErrors.ErrEmptyCart
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, decimal.Zero, domainErrors.ErrInvalidQuantity
		}
		ids = append(ids, item.MenuItemID)
	}

	catalog, err := menu.GetByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	priced := make([]model.CartItem, 0, len(items))
	total := decimal.Zero
	for _, item := range items {
		menuItem, ok := catalog[item.MenuItemID]
		if !ok || !menuItem.Available {
			return nil, decimal.Zero, domainErrors.ErrUnknownMenuItem
		}
		item.Name = menuItem.Name
		item.Price = menuItem.Price
		priced = append(priced, item)
		total = total.Add(menuItem.Price.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	return priced, total, nil
}

package model

import "github.com/shopspring/decimal"

// MenuItem is the catalog read model used for server-side re-pricing.
// Catalog management itself lives outside this service.
type MenuItem struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Available bool
}

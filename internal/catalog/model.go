// Package catalog exposes the product contract consumed by the stock
// ledger and the transaction engines. Catalog business rules (pricing,
// categories, reorder policy) live outside this system; only the fields
// the financial core depends on are modelled here.
package catalog

import (
	"time"

	"github.com/busanokirby/jc-web-v2/internal/money"
)

// Product is the stocked (or service) item referenced by sale lines,
// repair parts and stock movements.
type Product struct {
	ID        int64
	SKU       string
	Name      string
	IsService bool
	SellPrice money.Money
	OnHand    int64
	IsActive  bool
	CreatedAt time.Time
}

// Stocked reports whether the product carries physical stock. Service
// items (labor, installation) never do.
func (p Product) Stocked() bool {
	return !p.IsService
}

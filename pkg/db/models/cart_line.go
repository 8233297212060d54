package models

import (
	"time"

	"github.com/google/uuid"
)

// CartLine is one customer intent to buy. Exactly one of MenuStockUnitID and
// CustomCakeID is set. The cached unit price is refreshed from the menu row on
// every mutation; the cart is never authoritative over availability.
type CartLine struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID      uuid.UUID  `gorm:"column:customer_id;type:uuid;not null;index"`
	MenuStockUnitID *uuid.UUID `gorm:"column:menu_stock_unit_id;type:uuid;index"`
	CustomCakeID    *uuid.UUID `gorm:"column:custom_cake_id;type:uuid"`
	Qty             int        `gorm:"column:qty;not null"`
	UnitPriceCents  int        `gorm:"column:unit_price_cents;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

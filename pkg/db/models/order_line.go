package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderLine snapshots name/size/price/qty at purchase time so later menu
// edits never retroactively alter a historical order. The unit reference is
// kept only so deferred-commit orders can debit the ledger at reconciliation.
type OrderLine struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	MenuStockUnitID *uuid.UUID `gorm:"column:menu_stock_unit_id;type:uuid"`
	Name            string     `gorm:"column:name;not null"`
	Size            *string    `gorm:"column:size"`
	UnitPriceCents  int        `gorm:"column:unit_price_cents;not null"`
	Qty             int        `gorm:"column:qty;not null"`
	TotalCents      int        `gorm:"column:total_cents;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
}

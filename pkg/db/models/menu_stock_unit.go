package models

import (
	"time"

	"github.com/google/uuid"
)

// MenuStockUnit is a purchasable unit of inventory: a plain menu item or a
// (menu item, size) pair. A priced custom cake also owns one as a capacity-1
// slot so the same cake can never be sold twice. AvailableQty is mutated only
// through the stock ledger's debit/credit statements.
type MenuStockUnit struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	Size         *string    `gorm:"column:size"`
	PriceCents   int        `gorm:"column:price_cents;not null"`
	AvailableQty int        `gorm:"column:available_qty;not null;default:0"`
	Active       bool       `gorm:"column:active;not null;default:true"`
	CustomCakeID *uuid.UUID `gorm:"column:custom_cake_id;type:uuid;unique"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
)

// Order is the durable record of a committed purchase. TotalCents must equal
// the sum of the line totals at creation time; customers never write Status
// directly.
type Order struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	Status         enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentMethod  enums.PaymentMethod  `gorm:"column:payment_method;type:payment_method;not null;default:'cash'"`
	DeliveryMethod enums.DeliveryMethod `gorm:"column:delivery_method;type:delivery_method;not null;default:'pickup'"`
	ScheduledDate  time.Time            `gorm:"column:scheduled_date;not null"`
	TotalCents     int                  `gorm:"column:total_cents;not null"`
	PaidAt         *time.Time           `gorm:"column:paid_at"`
	CancelledAt    *time.Time           `gorm:"column:cancelled_at"`
	Lines          []OrderLine          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentIntents []PaymentIntent      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

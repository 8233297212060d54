package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
)

// CustomCakeOrder covers both 3D-configured and image-based cake requests.
// Once priced, DownpaymentCents+BalanceCents == *PriceCents holds at all
// times, and IsDownpaymentPaid only ever transitions false to true.
type CustomCakeOrder struct {
	ID                 uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID         uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	Kind               enums.CustomCakeKind     `gorm:"column:kind;type:custom_cake_kind;not null"`
	Flavor             string                   `gorm:"column:flavor;not null"`
	SizeTier           string                   `gorm:"column:size_tier;not null"`
	Layers             int                      `gorm:"column:layers;not null;default:1"`
	Message            *string                  `gorm:"column:message"`
	Theme              *string                  `gorm:"column:theme"`
	ImageURL           *string                  `gorm:"column:image_url"`
	ModelSpec          json.RawMessage          `gorm:"column:model_spec;type:jsonb"`
	Status             enums.CustomCakeStatus   `gorm:"column:status;type:custom_cake_status;not null;default:'Pending Review'"`
	StaffNotes         *string                  `gorm:"column:staff_notes"`
	PriceCents         *int                     `gorm:"column:price_cents"`
	DownpaymentCents   int                      `gorm:"column:downpayment_cents;not null;default:0"`
	BalanceCents       int                      `gorm:"column:balance_cents;not null;default:0"`
	IsDownpaymentPaid  bool                     `gorm:"column:is_downpayment_paid;not null;default:false"`
	FinalPaymentStatus enums.FinalPaymentStatus `gorm:"column:final_payment_status;type:final_payment_status;not null;default:'pending'"`
	ScheduledDate      *time.Time               `gorm:"column:scheduled_date"`
	CancelledAt        *time.Time               `gorm:"column:cancelled_at"`
	PaymentIntents     []PaymentIntent          `gorm:"foreignKey:CustomCakeOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
)

// PaymentIntent records one redirect-based payment at the processor. The
// unique provider source id plus the guarded pending->settled update is what
// makes reconciliation idempotent under concurrent webhook and poll triggers.
// Exactly one of OrderID and CustomCakeOrderID is set.
type PaymentIntent struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderSourceID  string              `gorm:"column:provider_source_id;not null;uniqueIndex:idx_payment_intents_source"`
	OrderID           *uuid.UUID          `gorm:"column:order_id;type:uuid;index"`
	CustomCakeOrderID *uuid.UUID          `gorm:"column:custom_cake_order_id;type:uuid;index"`
	Purpose           enums.PaymentPurpose `gorm:"column:purpose;type:payment_purpose;not null"`
	AmountCents       int                 `gorm:"column:amount_cents;not null"`
	Outcome           enums.IntentOutcome `gorm:"column:outcome;type:intent_outcome;not null;default:'pending'"`
	CheckoutURL       string              `gorm:"column:checkout_url;not null"`
	FailureReason     *string             `gorm:"column:failure_reason"`
	SettledAt         *time.Time          `gorm:"column:settled_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

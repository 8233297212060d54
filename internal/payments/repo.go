package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
)

// Repository manages persistence for payment intents.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, intent *models.PaymentIntent) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error)
	GetBySourceID(ctx context.Context, sourceID string) (*models.PaymentIntent, error)
	ListPendingForOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentIntent, error)
	MarkPaidGuarded(ctx context.Context, intentID uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, intentID uuid.UUID, reason string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment intent repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, intent *models.PaymentIntent) error {
	err := r.db.WithContext(ctx).Create(intent).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return pkgerrors.New(pkgerrors.CodeIdempotency, "an intent already exists for this payment source")
	}
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).First(&intent, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) GetBySourceID(ctx context.Context, sourceID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).First(&intent, "provider_source_id = ?", sourceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
	}
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *repository) ListPendingForOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentIntent, error) {
	var intents []models.PaymentIntent
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND outcome = ?", orderID, enums.IntentOutcomePending).
		Order("created_at ASC").
		Find(&intents).Error; err != nil {
		return nil, err
	}
	return intents, nil
}

// MarkPaidGuarded settles the intent only while it is still pending.
// RowsAffected zero means a concurrent trigger settled it first.
func (r *repository) MarkPaidGuarded(ctx context.Context, intentID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE payment_intents
		SET outcome = ?, settled_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND outcome = ?
	`, enums.IntentOutcomePaid, intentID, enums.IntentOutcomePending)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkFailed(ctx context.Context, intentID uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE payment_intents
		SET outcome = ?, failure_reason = ?, settled_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND outcome = ?
	`, enums.IntentOutcomeFailed, reason, intentID, enums.IntentOutcomePending).Error
}

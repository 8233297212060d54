package customcakes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
)

// Repository manages persistence for custom cake orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cake *models.CustomCakeOrder) error
	Save(ctx context.Context, cake *models.CustomCakeOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CustomCakeOrder, error)
	GetForCustomer(ctx context.Context, customerID, cakeID uuid.UUID) (*models.CustomCakeOrder, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomCakeOrder, error)
	ListByStatus(ctx context.Context, status enums.CustomCakeStatus) ([]models.CustomCakeOrder, error)
	UpdateStatusGuarded(ctx context.Context, cakeID uuid.UUID, from, to enums.CustomCakeStatus) (bool, error)
	SetFinalPaymentPaid(ctx context.Context, cakeID uuid.UUID) error
	SetDownpaymentPaid(ctx context.Context, cakeID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a custom cake repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cake *models.CustomCakeOrder) error {
	return r.db.WithContext(ctx).Create(cake).Error
}

func (r *repository) Save(ctx context.Context, cake *models.CustomCakeOrder) error {
	return r.db.WithContext(ctx).Save(cake).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.CustomCakeOrder, error) {
	var cake models.CustomCakeOrder
	err := r.db.WithContext(ctx).First(&cake, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "custom cake order not found")
	}
	if err != nil {
		return nil, err
	}
	return &cake, nil
}

func (r *repository) GetForCustomer(ctx context.Context, customerID, cakeID uuid.UUID) (*models.CustomCakeOrder, error) {
	var cake models.CustomCakeOrder
	err := r.db.WithContext(ctx).
		First(&cake, "id = ? AND customer_id = ?", cakeID, customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "custom cake order not found")
	}
	if err != nil {
		return nil, err
	}
	return &cake, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CustomCakeOrder, error) {
	var cakes []models.CustomCakeOrder
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&cakes).Error; err != nil {
		return nil, err
	}
	return cakes, nil
}

func (r *repository) ListByStatus(ctx context.Context, status enums.CustomCakeStatus) ([]models.CustomCakeOrder, error) {
	var cakes []models.CustomCakeOrder
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Find(&cakes).Error; err != nil {
		return nil, err
	}
	return cakes, nil
}

// SetFinalPaymentPaid flips the final payment status; guarded so a repeat
// settlement leaves the row untouched.
func (r *repository) SetFinalPaymentPaid(ctx context.Context, cakeID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE custom_cake_orders
		SET final_payment_status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND final_payment_status = ?
	`, enums.FinalPaymentPaid, cakeID, enums.FinalPaymentPending).Error
}

// SetDownpaymentPaid raises the paid flag. The flag never reverts.
func (r *repository) SetDownpaymentPaid(ctx context.Context, cakeID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE custom_cake_orders
		SET is_downpayment_paid = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, true, cakeID).Error
}

func (r *repository) UpdateStatusGuarded(ctx context.Context, cakeID uuid.UUID, from, to enums.CustomCakeStatus) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE custom_cake_orders
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`, to, cakeID, from)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

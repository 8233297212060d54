package stock

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
)

// Repository manages persistence for menu stock units.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, unit *models.MenuStockUnit) error
	Update(ctx context.Context, unit *models.MenuStockUnit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MenuStockUnit, error)
	GetByCustomCakeID(ctx context.Context, cakeID uuid.UUID) (*models.MenuStockUnit, error)
	ListActive(ctx context.Context) ([]models.MenuStockUnit, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a stock repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, unit *models.MenuStockUnit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *repository) Update(ctx context.Context, unit *models.MenuStockUnit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*models.MenuStockUnit, error) {
	var unit models.MenuStockUnit
	err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu stock unit not found")
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) GetByCustomCakeID(ctx context.Context, cakeID uuid.UUID) (*models.MenuStockUnit, error) {
	var unit models.MenuStockUnit
	err := r.db.WithContext(ctx).First(&unit, "custom_cake_id = ?", cakeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "custom cake stock slot not found")
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.MenuStockUnit, error) {
	var units []models.MenuStockUnit
	if err := r.db.WithContext(ctx).
		Where("active").
		Order("name ASC, size ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

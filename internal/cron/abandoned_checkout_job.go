package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/delacruzbakes/bakeshop-backend/internal/orders"
	"github.com/delacruzbakes/bakeshop-backend/internal/payments"
	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	"github.com/delacruzbakes/bakeshop-backend/pkg/logger"
)

const (
	defaultAbandonmentTimeout = 30 * time.Minute
	reapBatchLimit            = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pendingOrderReader interface {
	ListPendingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
}

type reaperOrderRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	DeleteLines(ctx context.Context, orderID uuid.UUID) error
	UpdateStatusGuarded(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
}

type reaperIntentRepo interface {
	ListPendingForOrder(ctx context.Context, orderID uuid.UUID) ([]models.PaymentIntent, error)
	MarkFailed(ctx context.Context, intentID uuid.UUID, reason string) error
}

type orderRepoFactory func(tx *gorm.DB) reaperOrderRepo

type intentRepoFactory func(tx *gorm.DB) reaperIntentRepo

func defaultOrderRepoFactory(tx *gorm.DB) reaperOrderRepo {
	return orders.NewRepository(tx)
}

func defaultIntentRepoFactory(tx *gorm.DB) reaperIntentRepo {
	return payments.NewRepository(tx)
}

// AbandonedCheckoutJobParams configure the abandoned checkout reaper.
type AbandonedCheckoutJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	PendingReader pendingOrderReader
	OrderRepos    orderRepoFactory
	IntentRepos   intentRepoFactory
	Timeout       time.Duration
}

// NewAbandonedCheckoutJob builds the job that cancels orders whose online
// payment never arrived.
func NewAbandonedCheckoutJob(params AbandonedCheckoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.PendingReader == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	orderRepos := params.OrderRepos
	if orderRepos == nil {
		orderRepos = defaultOrderRepoFactory
	}
	intentRepos := params.IntentRepos
	if intentRepos == nil {
		intentRepos = defaultIntentRepoFactory
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultAbandonmentTimeout
	}
	return &abandonedCheckoutJob{
		logg:          params.Logger,
		db:            params.DB,
		pendingReader: params.PendingReader,
		orderRepos:    orderRepos,
		intentRepos:   intentRepos,
		timeout:       timeout,
		now:           time.Now,
	}, nil
}

type abandonedCheckoutJob struct {
	logg          *logger.Logger
	db            txRunner
	pendingReader pendingOrderReader
	orderRepos    orderRepoFactory
	intentRepos   intentRepoFactory
	timeout       time.Duration
	now           func() time.Time
}

func (j *abandonedCheckoutJob) Name() string { return "abandoned-checkout" }

// Run cancels pending_payment orders older than the abandonment timeout.
// CommitOnConfirm orders never debited stock, so no credit happens here; a
// payment that lands after the reap is refused by the reconciler.
func (j *abandonedCheckoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.timeout)
	stale, err := j.pendingReader.ListPendingPaymentBefore(ctx, cutoff, reapBatchLimit)
	if err != nil {
		return fmt.Errorf("query abandoned checkouts: %w", err)
	}

	var errs error
	reaped := 0
	for _, order := range stale {
		if err := j.reapOrder(ctx, order.ID); err != nil {
			orderCtx := j.logg.WithOrderID(ctx, order.ID.String())
			j.logg.Error(orderCtx, "reap abandoned checkout", err)
			errs = multierr.Append(errs, err)
			continue
		}
		reaped++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"selected": len(stale), "reaped": reaped})
	j.logg.Info(logCtx, "abandoned checkout sweep complete")
	return errs
}

func (j *abandonedCheckoutJob) reapOrder(ctx context.Context, orderID uuid.UUID) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.orderRepos(tx)
		current, err := repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if current.Status != enums.OrderStatusPendingPayment {
			return nil
		}

		moved, err := repo.UpdateStatusGuarded(ctx, orderID, enums.OrderStatusPendingPayment, enums.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if !moved {
			return nil
		}
		if res := tx.WithContext(ctx).Exec(
			`UPDATE orders SET cancelled_at = CURRENT_TIMESTAMP WHERE id = ?`, orderID,
		); res.Error != nil {
			return res.Error
		}
		if err := repo.DeleteLines(ctx, orderID); err != nil {
			return err
		}

		intents := j.intentRepos(tx)
		pending, err := intents.ListPendingForOrder(ctx, orderID)
		if err != nil {
			return err
		}
		for _, intent := range pending {
			if err := intents.MarkFailed(ctx, intent.ID, "checkout abandoned"); err != nil {
				return err
			}
		}
		return nil
	})
}

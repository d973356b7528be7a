package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
)

// Repository manages persistence for verification payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	FindLatestByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	HasCompletedForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, updates map[string]any) (bool, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID, at time.Time) error
	RotateCode(ctx context.Context, id uuid.UUID, code string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindLatestByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) HasCompletedForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

// UpdateStatus applies a compare-and-swap on the payment status; a record
// only ever leaves pending once.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) IncrementAttempts(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_attempt_at": at,
		}).Error
}

// RotateCode swaps the verification code on a still-pending payment without
// touching the expiry window or the attempt counter.
func (r *repository) RotateCode(ctx context.Context, id uuid.UUID, code string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, enums.PaymentStatusPending).
		Update("verification_code", code)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

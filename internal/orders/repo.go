package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
	"github.com/gaslink-africa/gaslink-backend/pkg/pagination"
)

// ListFilter narrows an order listing to one side of the marketplace.
type ListFilter struct {
	CustomerID *uuid.UUID
	AgentID    *uuid.UUID
	Status     *enums.OrderStatus
	Cursor     *pagination.Cursor
	Limit      int
}

// Repository manages persistence for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter ListFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	SetRating(ctx context.Context, id uuid.UUID, rating int, review *string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = pagination.DefaultLimit
	}

	var rows []models.Order
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// UpdateStatus applies a compare-and-swap on the status column so concurrent
// transitions on the same order can never both succeed.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SetRating writes the rating once; the guard refuses orders that are not
// delivered or that already carry a rating.
func (r *repository) SetRating(ctx context.Context, id uuid.UUID, rating int, review *string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ? AND rating IS NULL", id, enums.OrderStatusDelivered).
		Updates(map[string]any{
			"rating": rating,
			"review": review,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

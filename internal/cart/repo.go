package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
)

// Repository manages a customer's saved cart entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error)
	ClearForListing(ctx context.Context, customerID, listingID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a cart repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ClearForListing removes the customer's entries for a listing once payment
// for it verifies.
func (r *repository) ClearForListing(ctx context.Context, customerID, listingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ? AND listing_id = ?", customerID, listingID).
		Delete(&models.CartItem{}).Error
}

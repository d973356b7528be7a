package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
)

// Repository mutates listing stock counters with conditional updates so two
// concurrent reservations can never both win the same units.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Reserve(ctx context.Context, listingID uuid.UUID, quantity int) (bool, error)
	Release(ctx context.Context, listingID uuid.UUID, quantity int) error
	Commit(ctx context.Context, listingID uuid.UUID, quantity int) (bool, error)
	FindListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Reserve moves quantity from available to reserved. Returns false when the
// listing is missing, unavailable, or short on stock.
func (r *repository) Reserve(ctx context.Context, listingID uuid.UUID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ? AND is_available = ? AND available_quantity >= ?", listingID, true, quantity).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity - ?", quantity),
			"reserved_quantity":  gorm.Expr("reserved_quantity + ?", quantity),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Release returns quantity to the available pool. When the units are still
// held in reserve the reserve counter is decremented in the same statement;
// stock already committed only restores availability.
func (r *repository) Release(ctx context.Context, listingID uuid.UUID, quantity int) error {
	res := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ? AND reserved_quantity >= ?", listingID, quantity).
		Updates(map[string]any{
			"available_quantity": gorm.Expr("available_quantity + ?", quantity),
			"reserved_quantity":  gorm.Expr("reserved_quantity - ?", quantity),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}
	return r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", listingID).
		Update("available_quantity", gorm.Expr("available_quantity + ?", quantity)).Error
}

// Commit finalizes a reservation: the units leave the reserved pool for good
// and the listing's popularity counter ticks up.
func (r *repository) Commit(ctx context.Context, listingID uuid.UUID, quantity int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ? AND reserved_quantity >= ?", listingID, quantity).
		Updates(map[string]any{
			"reserved_quantity": gorm.Expr("reserved_quantity - ?", quantity),
			"total_orders":      gorm.Expr("total_orders + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindListing(ctx context.Context, listingID uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", listingID).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

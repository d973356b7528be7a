package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
)

// Repository is the read surface into listings. Listing lifecycle lives with
// the catalog service; this side only consults pricing and ownership.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

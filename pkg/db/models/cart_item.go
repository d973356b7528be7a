package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is a customer's saved listing selection. Entries for a listing are
// cleared once payment for it verifies.
type CartItem struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`
	ListingID  uuid.UUID `gorm:"column:listing_id;type:uuid;not null"`
	Quantity   int       `gorm:"column:quantity;not null;default:1"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

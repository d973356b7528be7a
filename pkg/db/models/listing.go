package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing is owned by the catalog service. The core only reads pricing fields
// and mutates the stock counters and total_orders.
type Listing struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	AgentID           uuid.UUID       `gorm:"column:agent_id;type:uuid;not null;index"`
	SellingPrice      decimal.Decimal `gorm:"column:selling_price;type:numeric(12,2);not null"`
	DeliveryFee       decimal.Decimal `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	AvailableQuantity int             `gorm:"column:available_quantity;not null;default:0"`
	ReservedQuantity  int             `gorm:"column:reserved_quantity;not null;default:0"`
	IsAvailable       bool            `gorm:"column:is_available;not null;default:true"`
	TotalOrders       int             `gorm:"column:total_orders;not null;default:0"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

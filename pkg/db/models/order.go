package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
)

// Order represents one purchase of a listing quantity by a customer from an agent.
type Order struct {
	ID                  uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber         string                   `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID          uuid.UUID                `gorm:"column:customer_id;type:uuid;not null;index"`
	AgentID             uuid.UUID                `gorm:"column:agent_id;type:uuid;not null;index"`
	ListingID           uuid.UUID                `gorm:"column:listing_id;type:uuid;not null"`
	Quantity            int                      `gorm:"column:quantity;not null"`
	UnitPrice           decimal.Decimal          `gorm:"column:unit_price;type:numeric(12,2);not null"`
	TotalPrice          decimal.Decimal          `gorm:"column:total_price;type:numeric(12,2);not null"`
	DeliveryFee         decimal.Decimal          `gorm:"column:delivery_fee;type:numeric(12,2);not null"`
	GrandTotal          decimal.Decimal          `gorm:"column:grand_total;type:numeric(12,2);not null"`
	DeliveryAddress     string                   `gorm:"column:delivery_address;not null"`
	DeliveryLat         *float64                 `gorm:"column:delivery_lat"`
	DeliveryLng         *float64                 `gorm:"column:delivery_lng"`
	Status              enums.OrderStatus        `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentStatus       enums.OrderPaymentStatus `gorm:"column:payment_status;type:order_payment_status;not null;default:'pending'"`
	PaymentMethod       enums.PaymentMethod      `gorm:"column:payment_method;type:payment_method;not null;default:'cash'"`
	CustomerNotes       *string                  `gorm:"column:customer_notes"`
	AgentNotes          *string                  `gorm:"column:agent_notes"`
	CancellationReason  *string                  `gorm:"column:cancellation_reason"`
	Rating              *int                     `gorm:"column:rating"`
	Review              *string                  `gorm:"column:review"`
	EstimatedDeliveryAt *time.Time               `gorm:"column:estimated_delivery_at"`
	DeliveredAt         *time.Time               `gorm:"column:delivered_at"`
	CreatedAt           time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

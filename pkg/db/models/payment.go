package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
	"github.com/gaslink-africa/gaslink-backend/pkg/types"
)

// Payment is one verification-code attempt to settle an order. Records are
// never deleted; a restarted payment supersedes an expired one with a new row.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	CustomerID       uuid.UUID           `gorm:"column:customer_id;type:uuid;not null"`
	AgentID          uuid.UUID           `gorm:"column:agent_id;type:uuid;not null"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PhoneNumber      string              `gorm:"column:phone_number;not null"`
	Method           enums.PaymentMethod `gorm:"column:method;type:payment_method;not null;default:'mpesa'"`
	VerificationCode string              `gorm:"column:verification_code;not null"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	TransactionType  string              `gorm:"column:transaction_type;not null;default:'order_payment'"`
	TransactionRef   *string             `gorm:"column:transaction_ref"`
	Attempts         int                 `gorm:"column:attempts;not null;default:0"`
	LastAttemptAt    *time.Time          `gorm:"column:last_attempt_at"`
	VerifiedAt       *time.Time          `gorm:"column:verified_at"`
	ExpiresAt        time.Time           `gorm:"column:expires_at;not null"`
	FailureReason    *string             `gorm:"column:failure_reason"`
	Metadata         types.JSONMap       `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

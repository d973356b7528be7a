package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds an agent's running earnings balance. Created lazily on the
// first delivered order credit.
type Wallet struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	AgentID   uuid.UUID       `gorm:"column:agent_id;type:uuid;not null;uniqueIndex"`
	Balance   decimal.Decimal `gorm:"column:balance;type:numeric(12,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

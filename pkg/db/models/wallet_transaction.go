package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
)

// WalletTransaction is an append-only ledger entry. The unique (order, type)
// index is the idempotency guard against double-crediting a delivery.
type WalletTransaction struct {
	ID           uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	WalletID     uuid.UUID                   `gorm:"column:wallet_id;type:uuid;not null;index"`
	OrderID      uuid.UUID                   `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_wallet_transactions_order_type"`
	Type         enums.WalletTransactionType `gorm:"column:type;type:wallet_transaction_type;not null;uniqueIndex:ux_wallet_transactions_order_type"`
	Amount       decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter decimal.Decimal             `gorm:"column:balance_after;type:numeric(12,2);not null"`
	CreatedAt    time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
)

// Repository manages wallets and their append-only transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByAgent(ctx context.Context, agentID uuid.UUID) (*models.Wallet, error)
	Create(ctx context.Context, wallet *models.Wallet) error
	UpdateBalance(ctx context.Context, walletID uuid.UUID, from, to decimal.Decimal) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByAgent(ctx context.Context, agentID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("agent_id = ?", agentID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) Create(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

// UpdateBalance applies a compare-and-swap on the balance so concurrent
// credits never lose an update.
func (r *repository) UpdateBalance(ctx context.Context, walletID uuid.UUID, from, to decimal.Decimal) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ? AND balance = ?", walletID, from).
		Update("balance", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.WalletTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

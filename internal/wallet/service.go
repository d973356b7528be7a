package wallet

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/gaslink-africa/gaslink-backend/pkg/db"
	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
	apperrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
	"github.com/gaslink-africa/gaslink-backend/pkg/logger"
)

const casRetries = 3

// Service credits agent earnings when orders complete.
type Service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg}
}

func (s *Service) WithTx(tx *gorm.DB) *Service {
	if tx == nil {
		return s
	}
	return &Service{repo: s.repo.WithTx(tx), logg: s.logg}
}

// CreditForOrder adds the order's grand total to the agent's wallet. The
// unique (order, type) transaction row makes a replayed credit a no-op.
func (s *Service) CreditForOrder(ctx context.Context, order *models.Order) error {
	wallet, err := s.findOrCreate(ctx, order)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		newBalance := wallet.Balance.Add(order.GrandTotal)
		ok, err := s.repo.UpdateBalance(ctx, wallet.ID, wallet.Balance, newBalance)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "updating wallet balance")
		}
		if !ok {
			wallet, err = s.repo.FindByAgent(ctx, order.AgentID)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeInternal, err, "reloading wallet")
			}
			continue
		}

		txn := &models.WalletTransaction{
			ID:           uuid.New(),
			WalletID:     wallet.ID,
			OrderID:      order.ID,
			Type:         enums.WalletTransactionTypeOrderCredit,
			Amount:       order.GrandTotal,
			BalanceAfter: newBalance,
		}
		if err := s.repo.CreateTransaction(ctx, txn); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				// Already credited for this order; undo the balance bump.
				if _, revertErr := s.repo.UpdateBalance(ctx, wallet.ID, newBalance, wallet.Balance); revertErr != nil {
					return apperrors.Wrap(apperrors.CodeInternal, revertErr, "reverting duplicate credit")
				}
				return nil
			}
			return apperrors.Wrap(apperrors.CodeInternal, err, "recording wallet transaction")
		}

		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"wallet_id": wallet.ID.String(),
				"order_id":  order.ID.String(),
				"amount":    order.GrandTotal.String(),
			})
			s.logg.Info(logCtx, "wallet credited")
		}
		return nil
	}

	return apperrors.New(apperrors.CodeConflict, "wallet balance contention, retry")
}

func (s *Service) findOrCreate(ctx context.Context, order *models.Order) (*models.Wallet, error) {
	wallet, err := s.repo.FindByAgent(ctx, order.AgentID)
	if err == nil {
		return wallet, nil
	}
	if !stdErrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading wallet")
	}

	created := &models.Wallet{ID: uuid.New(), AgentID: order.AgentID}
	if createErr := s.repo.Create(ctx, created); createErr != nil {
		if dbpkg.IsUniqueViolation(createErr, "") {
			wallet, err = s.repo.FindByAgent(ctx, order.AgentID)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.CodeInternal, err, "reloading wallet after create race")
			}
			return wallet, nil
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, createErr, "creating wallet")
	}
	return created, nil
}

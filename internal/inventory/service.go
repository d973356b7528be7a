package inventory

import (
	"context"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
	"github.com/gaslink-africa/gaslink-backend/pkg/logger"
)

// Service enforces stock semantics on top of the conditional repository updates.
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

// Reserve holds quantity units of the listing for an order in flight.
func (s *Service) Reserve(ctx context.Context, listingID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return apperrors.New(apperrors.CodeValidation, "quantity must be at least 1")
	}
	ok, err := s.repo.Reserve(ctx, listingID, quantity)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "reserving stock")
	}
	if ok {
		return nil
	}
	listing, err := s.repo.FindListing(ctx, listingID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "listing not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "loading listing")
	}
	if !listing.IsAvailable {
		return apperrors.New(apperrors.CodeStateConflict, "listing is not available")
	}
	return apperrors.New(apperrors.CodeStateConflict, "insufficient stock").
		WithDetails(map[string]any{"available_quantity": listing.AvailableQuantity})
}

// Release returns quantity units to the listing's available pool.
func (s *Service) Release(ctx context.Context, listingID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return apperrors.New(apperrors.CodeValidation, "quantity must be at least 1")
	}
	if err := s.repo.Release(ctx, listingID, quantity); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "releasing stock")
	}
	return nil
}

// Commit turns a reservation into a completed sale.
func (s *Service) Commit(ctx context.Context, listingID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return apperrors.New(apperrors.CodeValidation, "quantity must be at least 1")
	}
	ok, err := s.repo.Commit(ctx, listingID, quantity)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "committing stock")
	}
	if !ok {
		return apperrors.New(apperrors.CodeStateConflict, "no matching reservation to commit")
	}
	return nil
}

package orders

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gaslink-africa/gaslink-backend/internal/inventory"
	"github.com/gaslink-africa/gaslink-backend/internal/wallet"
	dbpkg "github.com/gaslink-africa/gaslink-backend/pkg/db"
	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
	apperrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
	"github.com/gaslink-africa/gaslink-backend/pkg/logger"
	"github.com/gaslink-africa/gaslink-backend/pkg/outbox"
	"github.com/gaslink-africa/gaslink-backend/pkg/pagination"
	"github.com/gaslink-africa/gaslink-backend/pkg/types"
)

// Service drives the order lifecycle for agents and serves order reads.
type Service struct {
	db           *dbpkg.Client
	repo         Repository
	inventorySvc *inventory.Service
	walletSvc    *wallet.Service
	outboxSvc    *outbox.Service
	logg         *logger.Logger
}

func NewService(
	db *dbpkg.Client,
	repo Repository,
	inventorySvc *inventory.Service,
	walletSvc *wallet.Service,
	outboxSvc *outbox.Service,
	logg *logger.Logger,
) *Service {
	return &Service{
		db:           db,
		repo:         repo,
		inventorySvc: inventorySvc,
		walletSvc:    walletSvc,
		outboxSvc:    outboxSvc,
		logg:         logg,
	}
}

// GetByID returns the order when the principal is its customer or agent.
func (s *Service) GetByID(ctx context.Context, principal types.Principal, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != principal.UserID && order.AgentID != principal.UserID {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// List returns the principal's side of the order book, newest first, with an
// opaque cursor for the next page.
func (s *Service) List(ctx context.Context, principal types.Principal, params ListParams) ([]models.Order, string, error) {
	filter := ListFilter{}
	switch {
	case principal.IsAgent():
		filter.AgentID = &principal.UserID
	default:
		filter.CustomerID = &principal.UserID
	}

	if params.Status != "" {
		status, err := enums.ParseOrderStatus(params.Status)
		if err != nil {
			return nil, "", apperrors.New(apperrors.CodeValidation, "invalid status filter")
		}
		filter.Status = &status
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", apperrors.New(apperrors.CodeValidation, "invalid cursor")
	}
	filter.Cursor = cursor
	filter.Limit = pagination.LimitWithBuffer(params.Limit)

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeInternal, err, "listing orders")
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

// UpdateStatusByAgent moves the order along the lifecycle table. The status
// write is a compare-and-swap, so a concurrent transition on the same order
// loses cleanly instead of double-applying side effects.
func (s *Service) UpdateStatusByAgent(ctx context.Context, principal types.Principal, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.AgentID != principal.UserID {
		return nil, apperrors.New(apperrors.CodeForbidden, "only the order's agent may update its status")
	}
	if !input.Target.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid target status")
	}
	if input.Target == enums.OrderStatusPending {
		return nil, apperrors.New(apperrors.CodeStateConflict, "orders enter pending through payment, not agent updates")
	}
	if !CanTransition(order.Status, input.Target) {
		return nil, invalidTransition(order.Status, input.Target)
	}

	updates := map[string]any{}
	if input.AgentNotes != nil {
		updates["agent_notes"] = *input.AgentNotes
	}
	if input.EstimatedDeliveryAt != nil {
		updates["estimated_delivery_at"] = *input.EstimatedDeliveryAt
	}
	if input.Target == enums.OrderStatusDelivered {
		updates["delivered_at"] = time.Now().UTC()
	}
	if input.Target == enums.OrderStatusCancelled {
		reason := "cancelled by agent"
		if input.CancellationReason != nil {
			reason = *input.CancellationReason
		}
		updates["cancellation_reason"] = reason
	}

	from := order.Status
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).UpdateStatus(ctx, order.ID, from, input.Target, updates)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "updating order status")
		}
		if !ok {
			return invalidTransition(from, input.Target)
		}

		switch {
		case input.Target == enums.OrderStatusDelivered:
			if err := s.walletSvc.WithTx(tx).CreditForOrder(ctx, order); err != nil {
				return err
			}
		case input.Target == enums.OrderStatusCancelled && from == enums.OrderStatusConfirmed:
			if err := s.inventorySvc.WithTx(tx).Release(ctx, order.ListingID, order.Quantity); err != nil {
				return err
			}
		}

		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: principal.UserID, Role: principal.Role.String()},
			Data: statusChangedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        from,
				To:          input.Target,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	updated, loadErr := s.loadOrder(ctx, orderID)
	if loadErr != nil {
		return nil, loadErr
	}
	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, fmt.Sprintf("order status %s -> %s", from, input.Target))
	}
	return updated, nil
}

// AddRating records the customer's one-time rating on a delivered order.
func (s *Service) AddRating(ctx context.Context, principal types.Principal, orderID uuid.UUID, rating int, review *string) (*models.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, apperrors.New(apperrors.CodeValidation, "rating must be between 1 and 5")
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != principal.UserID {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}

	ok, err := s.repo.SetRating(ctx, order.ID, rating, review)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "saving rating")
	}
	if !ok {
		if order.Rating != nil {
			return nil, apperrors.New(apperrors.CodeStateConflict, "order already rated")
		}
		return nil, apperrors.New(apperrors.CodeStateConflict, "only delivered orders can be rated")
	}
	return s.loadOrder(ctx, orderID)
}

func (s *Service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading order")
	}
	return order, nil
}

func invalidTransition(from, to enums.OrderStatus) *apperrors.Error {
	return apperrors.New(apperrors.CodeStateConflict,
		fmt.Sprintf("cannot transition order from %s to %s", from, to)).
		WithDetails(map[string]any{
			"current_status":   from,
			"requested_status": to,
			"allowed":          AllowedTargets(from),
		})
}

type statusChangedEvent struct {
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	From        enums.OrderStatus `json:"from"`
	To          enums.OrderStatus `json:"to"`
}

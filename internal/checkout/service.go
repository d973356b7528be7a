package checkout

import (
	"context"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/gaslink-africa/gaslink-backend/internal/cart"
	"github.com/gaslink-africa/gaslink-backend/internal/catalog"
	"github.com/gaslink-africa/gaslink-backend/internal/inventory"
	"github.com/gaslink-africa/gaslink-backend/internal/orders"
	dbpkg "github.com/gaslink-africa/gaslink-backend/pkg/db"
	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
	apperrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
	"github.com/gaslink-africa/gaslink-backend/pkg/logger"
	"github.com/gaslink-africa/gaslink-backend/pkg/outbox"
	"github.com/gaslink-africa/gaslink-backend/pkg/types"
)

// stockPolicy pins the point at which reserved stock becomes a sale, keyed by
// payment method so the rule stays auditable in one place. Cash settles at the
// door, so its stock commits at placement; electronic payments commit only
// once the payment verifies.
type stockPolicy struct {
	CommitAtPlacement bool
}

var stockPolicyByMethod = map[enums.PaymentMethod]stockPolicy{
	enums.PaymentMethodCash:  {CommitAtPlacement: true},
	enums.PaymentMethodMpesa: {CommitAtPlacement: false},
}

// Service orchestrates order placement, post-payment finalization, and
// customer cancellation, each inside one database transaction.
type Service struct {
	db           *dbpkg.Client
	orderRepo    orders.Repository
	catalogRepo  catalog.Repository
	cartRepo     cart.Repository
	inventorySvc *inventory.Service
	outboxSvc    *outbox.Service
	logg         *logger.Logger
}

func NewService(
	db *dbpkg.Client,
	orderRepo orders.Repository,
	catalogRepo catalog.Repository,
	cartRepo cart.Repository,
	inventorySvc *inventory.Service,
	outboxSvc *outbox.Service,
	logg *logger.Logger,
) *Service {
	return &Service{
		db:           db,
		orderRepo:    orderRepo,
		catalogRepo:  catalogRepo,
		cartRepo:     cartRepo,
		inventorySvc: inventorySvc,
		outboxSvc:    outboxSvc,
		logg:         logg,
	}
}

// PlaceOrder reserves stock, prices the order, and creates it in one
// transaction. Cash orders start in pending; electronic orders wait in
// pending_payment until verification.
func (s *Service) PlaceOrder(ctx context.Context, principal types.Principal, input PlaceOrderInput) (*models.Order, error) {
	if input.Quantity < 1 {
		return nil, apperrors.New(apperrors.CodeValidation, "quantity must be at least 1")
	}
	if strings.TrimSpace(input.DeliveryAddress) == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "delivery address is required")
	}
	policy, ok := stockPolicyByMethod[input.PaymentMethod]
	if !ok {
		return nil, apperrors.New(apperrors.CodeValidation, "invalid payment method")
	}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		listing, err := s.catalogRepo.WithTx(tx).FindListingByID(ctx, input.ListingID)
		if err != nil {
			if stdErrors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.CodeNotFound, "listing not found")
			}
			return apperrors.Wrap(apperrors.CodeInternal, err, "loading listing")
		}
		if listing.AgentID == principal.UserID {
			return apperrors.New(apperrors.CodeStateConflict, "agents cannot order their own listing")
		}

		if err := s.inventorySvc.WithTx(tx).Reserve(ctx, listing.ID, input.Quantity); err != nil {
			return err
		}
		if policy.CommitAtPlacement {
			if err := s.inventorySvc.WithTx(tx).Commit(ctx, listing.ID, input.Quantity); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		unitPrice := listing.SellingPrice
		totalPrice := unitPrice.Mul(decimal.NewFromInt(int64(input.Quantity)))
		grandTotal := totalPrice.Add(listing.DeliveryFee)

		status := enums.OrderStatusPending
		if !policy.CommitAtPlacement {
			status = enums.OrderStatusPendingPayment
		}

		order = &models.Order{
			ID:              uuid.New(),
			OrderNumber:     GenerateOrderNumber(now),
			CustomerID:      principal.UserID,
			AgentID:         listing.AgentID,
			ListingID:       listing.ID,
			Quantity:        input.Quantity,
			UnitPrice:       unitPrice,
			TotalPrice:      totalPrice,
			DeliveryFee:     listing.DeliveryFee,
			GrandTotal:      grandTotal,
			DeliveryAddress: input.DeliveryAddress,
			DeliveryLat:     input.DeliveryLat,
			DeliveryLng:     input.DeliveryLng,
			Status:          status,
			PaymentStatus:   enums.OrderPaymentStatusPending,
			PaymentMethod:   input.PaymentMethod,
			CustomerNotes:   input.CustomerNotes,
		}
		if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "creating order")
		}

		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: principal.UserID, Role: principal.Role.String()},
			Data: orderPlacedEvent{
				OrderID:       order.ID,
				OrderNumber:   order.OrderNumber,
				AgentID:       order.AgentID,
				GrandTotal:    order.GrandTotal.String(),
				PaymentMethod: order.PaymentMethod,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, "order placed")
	}
	return order, nil
}

// OnPaymentVerified finalizes an electronically paid order inside the
// caller's transaction: the order moves pending_payment -> pending, the
// reservation commits, and the customer's cart entries for the listing clear.
func (s *Service) OnPaymentVerified(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	if tx == nil {
		return apperrors.New(apperrors.CodeInternal, "transaction required")
	}

	orderRepo := s.orderRepo.WithTx(tx)
	order, err := orderRepo.FindByID(ctx, payment.OrderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		return apperrors.Wrap(apperrors.CodeInternal, err, "loading order")
	}

	ok, err := orderRepo.UpdateStatus(ctx, order.ID,
		enums.OrderStatusPendingPayment, enums.OrderStatusPending,
		map[string]any{"payment_status": enums.OrderPaymentStatusPaid})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "updating order after payment")
	}
	if !ok {
		return apperrors.New(apperrors.CodeStateConflict, "order is not awaiting payment")
	}

	if err := s.inventorySvc.WithTx(tx).Commit(ctx, order.ListingID, order.Quantity); err != nil {
		return err
	}
	if err := s.cartRepo.WithTx(tx).ClearForListing(ctx, order.CustomerID, order.ListingID); err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "clearing cart")
	}

	return s.outboxSvc.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentCompleted,
		AggregateType: enums.AggregatePayment,
		AggregateID:   payment.ID,
		Data: paymentCompletedEvent{
			PaymentID:   payment.ID,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Amount:      payment.Amount.String(),
		},
		Version: 1,
	})
}

// CancelOrder cancels a customer's order from pending or confirmed. Stock is
// released only when cancelling from confirmed; a pending cancellation keeps
// the reservation ledger untouched (known asymmetry, kept deliberately).
func (s *Service) CancelOrder(ctx context.Context, principal types.Principal, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading order")
	}
	if order.CustomerID != principal.UserID {
		return nil, apperrors.New(apperrors.CodeNotFound, "order not found")
	}
	if order.Status != enums.OrderStatusPending && order.Status != enums.OrderStatusConfirmed {
		return nil, apperrors.New(apperrors.CodeStateConflict, "order can no longer be cancelled").
			WithDetails(map[string]any{"current_status": order.Status})
	}

	from := order.Status
	cancelReason := strings.TrimSpace(reason)
	if cancelReason == "" {
		cancelReason = "cancelled by customer"
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.orderRepo.WithTx(tx).UpdateStatus(ctx, order.ID, from, enums.OrderStatusCancelled,
			map[string]any{"cancellation_reason": cancelReason})
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "cancelling order")
		}
		if !ok {
			return apperrors.New(apperrors.CodeStateConflict, "order can no longer be cancelled")
		}

		if from == enums.OrderStatusConfirmed {
			if err := s.inventorySvc.WithTx(tx).Release(ctx, order.ListingID, order.Quantity); err != nil {
				return err
			}
		}

		return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: principal.UserID, Role: principal.Role.String()},
			Data: orderCancelledEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				From:        from,
				Reason:      cancelReason,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.orderRepo.FindByID(ctx, orderID)
}

type orderPlacedEvent struct {
	OrderID       uuid.UUID           `json:"orderId"`
	OrderNumber   string              `json:"orderNumber"`
	AgentID       uuid.UUID           `json:"agentId"`
	GrandTotal    string              `json:"grandTotal"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
}

type paymentCompletedEvent struct {
	PaymentID   uuid.UUID `json:"paymentId"`
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	Amount      string    `json:"amount"`
}

type orderCancelledEvent struct {
	OrderID     uuid.UUID         `json:"orderId"`
	OrderNumber string            `json:"orderNumber"`
	From        enums.OrderStatus `json:"from"`
	Reason      string            `json:"reason"`
}

package payments

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/binary"
	stdErrors "errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gaslink-africa/gaslink-backend/internal/checkout"
	"github.com/gaslink-africa/gaslink-backend/internal/orders"
	"github.com/gaslink-africa/gaslink-backend/pkg/config"
	dbpkg "github.com/gaslink-africa/gaslink-backend/pkg/db"
	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
	apperrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
	"github.com/gaslink-africa/gaslink-backend/pkg/logger"
	"github.com/gaslink-africa/gaslink-backend/pkg/metrics"
	"github.com/gaslink-africa/gaslink-backend/pkg/outbox"
	"github.com/gaslink-africa/gaslink-backend/pkg/types"
)

const (
	transactionTypeOrderPayment = "order_payment"

	resendLimit  = 3
	resendWindow = 10 * time.Minute
)

// RateLimiter is the slice of the redis client the resend flow needs.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Service runs the simulated mobile-money verification flow.
type Service struct {
	db          *dbpkg.Client
	repo        Repository
	orderRepo   orders.Repository
	checkoutSvc *checkout.Service
	outboxSvc   *outbox.Service
	limiter     RateLimiter
	metrics     *metrics.PaymentMetrics
	cfg         config.PaymentsConfig
	logg        *logger.Logger
	now         func() time.Time
}

func NewService(
	db *dbpkg.Client,
	repo Repository,
	orderRepo orders.Repository,
	checkoutSvc *checkout.Service,
	outboxSvc *outbox.Service,
	limiter RateLimiter,
	paymentMetrics *metrics.PaymentMetrics,
	cfg config.PaymentsConfig,
	logg *logger.Logger,
) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		orderRepo:   orderRepo,
		checkoutSvc: checkoutSvc,
		outboxSvc:   outboxSvc,
		limiter:     limiter,
		metrics:     paymentMetrics,
		cfg:         cfg,
		logg:        logg,
		now:         time.Now,
	}
}

// Initiate starts a verification payment for an order awaiting payment.
func (s *Service) Initiate(ctx context.Context, principal types.Principal, input InitiateInput) (*CodeIssue, error) {
	order, err := s.loadOwnedOrder(ctx, principal, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusPendingPayment {
		return nil, apperrors.New(apperrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"current_status": order.Status})
	}

	completed, err := s.repo.HasCompletedForOrder(ctx, order.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "checking prior payments")
	}
	if completed {
		return nil, apperrors.New(apperrors.CodeStateConflict, "order is already paid")
	}

	if !input.Amount.Equal(order.GrandTotal) {
		return nil, apperrors.New(apperrors.CodeStateConflict, "amount does not match order total").
			WithDetails(map[string]any{"expected_amount": order.GrandTotal.String()})
	}

	phone, err := NormalizePhone(input.PhoneNumber)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	payment := &models.Payment{
		ID:               uuid.New(),
		OrderID:          order.ID,
		CustomerID:       order.CustomerID,
		AgentID:          order.AgentID,
		Amount:           order.GrandTotal,
		PhoneNumber:      phone,
		Method:           enums.PaymentMethodMpesa,
		VerificationCode: generateVerificationCode(),
		Status:           enums.PaymentStatusPending,
		TransactionType:  transactionTypeOrderPayment,
		ExpiresAt:        now.Add(s.cfg.CodeExpiry),
		Metadata: types.JSONMap{
			"listing_id":     order.ListingID.String(),
			"quantity":       order.Quantity,
			"original_phone": input.PhoneNumber,
		},
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating payment")
	}

	s.metrics.IncInitiated(payment.Method.String())
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id": payment.ID.String(),
			"order_id":   order.ID.String(),
		})
		s.logg.Info(logCtx, "payment initiated")
	}

	return &CodeIssue{Payment: ToView(payment), VerificationCode: payment.VerificationCode}, nil
}

// Verify checks the submitted code. Expiry is evaluated lazily here: a
// payment past its window is marked expired as a side effect of the check,
// and that mark sticks even though the verify call itself fails.
func (s *Service) Verify(ctx context.Context, principal types.Principal, paymentID uuid.UUID, code string) (*VerifiedResult, error) {
	payment, err := s.loadOwnedPayment(ctx, principal, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, apperrors.New(apperrors.CodeStateConflict, "payment already processed").
			WithDetails(map[string]any{"status": payment.Status})
	}

	now := s.now().UTC()
	if now.After(payment.ExpiresAt) {
		if err := s.expire(ctx, payment.ID, "expired"); err != nil {
			return nil, err
		}
		s.metrics.IncExpired()
		return nil, apperrors.New(apperrors.CodeStateConflict, "payment has expired")
	}

	if payment.Attempts >= s.cfg.MaxAttempts {
		if err := s.expire(ctx, payment.ID, "too many attempts"); err != nil {
			return nil, err
		}
		s.metrics.IncFailed("too_many_attempts")
		return nil, apperrors.New(apperrors.CodeStateConflict, "too many verification attempts, payment expired")
	}

	if code != payment.VerificationCode {
		if err := s.repo.IncrementAttempts(ctx, payment.ID, now); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "recording failed attempt")
		}
		attempts := payment.Attempts + 1
		if attempts >= s.cfg.MaxAttempts {
			if err := s.expire(ctx, payment.ID, "too many attempts"); err != nil {
				return nil, err
			}
			s.metrics.IncFailed("too_many_attempts")
			return nil, apperrors.New(apperrors.CodeStateConflict, "too many verification attempts, payment expired").
				WithDetails(map[string]any{"attempts_left": 0})
		}
		s.metrics.IncFailed("code_mismatch")
		return nil, apperrors.New(apperrors.CodeStateConflict, "invalid verification code").
			WithDetails(map[string]any{"attempts_left": s.cfg.MaxAttempts - attempts})
	}

	transactionRef := generateTransactionRef(now)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).UpdateStatus(ctx, payment.ID,
			enums.PaymentStatusPending, enums.PaymentStatusCompleted,
			map[string]any{
				"verified_at":     now,
				"transaction_ref": transactionRef,
			})
		if err != nil {
			return apperrors.Wrap(apperrors.CodeInternal, err, "completing payment")
		}
		if !ok {
			return apperrors.New(apperrors.CodeStateConflict, "payment already processed")
		}
		return s.checkoutSvc.OnPaymentVerified(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncVerified()
	updated, err := s.repo.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "reloading payment")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id":      payment.ID.String(),
			"order_id":        payment.OrderID.String(),
			"transaction_ref": transactionRef,
		})
		s.logg.Info(logCtx, "payment verified")
	}
	return &VerifiedResult{Payment: ToView(updated), TransactionRef: transactionRef}, nil
}

// Resend rotates the verification code on a still-pending payment. The
// expiry window and the attempt counter stay untouched.
func (s *Service) Resend(ctx context.Context, principal types.Principal, paymentID uuid.UUID) (*CodeIssue, error) {
	payment, err := s.loadOwnedPayment(ctx, principal, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != enums.PaymentStatusPending {
		return nil, apperrors.New(apperrors.CodeStateConflict, "payment already processed").
			WithDetails(map[string]any{"status": payment.Status})
	}

	now := s.now().UTC()
	if now.After(payment.ExpiresAt) {
		if err := s.expire(ctx, payment.ID, "expired"); err != nil {
			return nil, err
		}
		s.metrics.IncExpired()
		return nil, apperrors.New(apperrors.CodeStateConflict, "payment has expired")
	}

	if s.limiter != nil {
		scope := fmt.Sprintf("payments:resend:%s", payment.ID)
		allowed, _, err := s.limiter.FixedWindowAllow(ctx, scope, resendLimit, resendWindow)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeDependency, err, "checking resend rate limit")
		}
		if !allowed {
			return nil, apperrors.New(apperrors.CodeRateLimit, "too many resend requests")
		}
	}

	code := generateVerificationCode()
	ok, err := s.repo.RotateCode(ctx, payment.ID, code)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "rotating verification code")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeStateConflict, "payment already processed")
	}

	payment.VerificationCode = code
	return &CodeIssue{Payment: ToView(payment), VerificationCode: code}, nil
}

// Status returns the latest payment for the order. The read is deliberately
// passive: a stale pending payment is reported as pending until someone
// verifies or resends against it.
func (s *Service) Status(ctx context.Context, principal types.Principal, orderID uuid.UUID) (*PaymentView, error) {
	order, err := s.loadOwnedOrder(ctx, principal, orderID)
	if err != nil {
		return nil, err
	}
	payment, err := s.repo.FindLatestByOrder(ctx, order.ID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "no payment found for order")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading payment")
	}
	view := ToView(payment)
	return &view, nil
}

// HandleGatewayCallback processes the simulated gateway's asynchronous
// result. It never fails the webhook; problems surface in the result code.
func (s *Service) HandleGatewayCallback(ctx context.Context, input CallbackInput) (int, string) {
	payment, err := s.repo.FindLatestByOrder(ctx, input.OrderID)
	if err != nil {
		return 1, "payment not found"
	}
	if payment.Status != enums.PaymentStatusPending {
		return 1, "payment already processed"
	}

	if input.ResultCode != 0 {
		reason := input.ResultDesc
		if reason == "" {
			reason = "gateway reported failure"
		}
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			ok, err := s.repo.WithTx(tx).UpdateStatus(ctx, payment.ID,
				enums.PaymentStatusPending, enums.PaymentStatusFailed,
				map[string]any{"failure_reason": reason})
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.New(apperrors.CodeStateConflict, "payment already processed")
			}
			return s.outboxSvc.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPaymentFailed,
				AggregateType: enums.AggregatePayment,
				AggregateID:   payment.ID,
				Data: map[string]any{
					"paymentId": payment.ID.String(),
					"orderId":   payment.OrderID.String(),
					"reason":    reason,
				},
				Version: 1,
			})
		})
		if err != nil {
			return 1, "failed to record gateway result"
		}
		s.metrics.IncFailed("gateway")
		return 0, "failure recorded"
	}

	now := s.now().UTC()
	transactionRef := generateTransactionRef(now)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).UpdateStatus(ctx, payment.ID,
			enums.PaymentStatusPending, enums.PaymentStatusCompleted,
			map[string]any{
				"verified_at":     now,
				"transaction_ref": transactionRef,
			})
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.New(apperrors.CodeStateConflict, "payment already processed")
		}
		return s.checkoutSvc.OnPaymentVerified(ctx, tx, payment)
	})
	if err != nil {
		return 1, "failed to complete payment"
	}
	s.metrics.IncVerified()
	return 0, "payment completed"
}

func (s *Service) expire(ctx context.Context, paymentID uuid.UUID, reason string) error {
	_, err := s.repo.UpdateStatus(ctx, paymentID,
		enums.PaymentStatusPending, enums.PaymentStatusExpired,
		map[string]any{"failure_reason": reason})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "expiring payment")
	}
	return nil
}

func (s *Service) loadOwnedOrder(ctx context.Context, principal types.Principal, orderID uuid.UUID) (*models.Order, error) {
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
	return order, nil
}

func (s *Service) loadOwnedPayment(ctx context.Context, principal types.Principal, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if stdErrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "payment not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading payment")
	}
	if payment.CustomerID != principal.UserID {
		return nil, apperrors.New(apperrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

// generateVerificationCode draws from [100000, 999999]. Codes gate payment
// completion, so they come from the crypto source; crypto/rand.Read never
// fails.
func generateVerificationCode() string {
	var buf [8]byte
	cryptorand.Read(buf[:])
	return fmt.Sprintf("%06d", binary.BigEndian.Uint64(buf[:])%900000+100000)
}

func generateTransactionRef(now time.Time) string {
	return fmt.Sprintf("MPESA-%d-%05d", now.Unix(), rand.IntN(100000))
}

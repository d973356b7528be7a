package payments

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gaslink-africa/gaslink-backend/internal/cart"
	"github.com/gaslink-africa/gaslink-backend/internal/catalog"
	"github.com/gaslink-africa/gaslink-backend/internal/checkout"
	"github.com/gaslink-africa/gaslink-backend/internal/inventory"
	"github.com/gaslink-africa/gaslink-backend/internal/orders"
	"github.com/gaslink-africa/gaslink-backend/pkg/config"
	dbpkg "github.com/gaslink-africa/gaslink-backend/pkg/db"
	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
	apperrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
	"github.com/gaslink-africa/gaslink-backend/pkg/outbox"
	"github.com/gaslink-africa/gaslink-backend/pkg/types"
)

type harness struct {
	svc    *Service
	client *dbpkg.Client
	buyer  types.Principal
	order  *models.Order
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dsn := fmt.Sprintf("file:payments_%s?mode=memory&cache=shared", uuid.NewString())
	client, err := dbpkg.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	if err := client.DB().AutoMigrate(
		&models.Listing{}, &models.Order{}, &models.Payment{},
		&models.CartItem{}, &models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	orderRepo := orders.NewRepository(client.DB())
	inventorySvc := inventory.NewService(inventory.NewRepository(client.DB()), nil)
	outboxSvc := outbox.NewService(outbox.NewRepository(client.DB()), nil)
	checkoutSvc := checkout.NewService(
		client, orderRepo,
		catalog.NewRepository(client.DB()),
		cart.NewRepository(client.DB()),
		inventorySvc, outboxSvc, nil,
	)

	cfg := config.PaymentsConfig{CodeExpiry: 10 * time.Minute, MaxAttempts: 5}
	svc := NewService(client, NewRepository(client.DB()), orderRepo, checkoutSvc, outboxSvc, nil, nil, cfg, nil)

	listing := &models.Listing{
		ID:                uuid.New(),
		AgentID:           uuid.New(),
		SellingPrice:      decimal.NewFromInt(1200),
		DeliveryFee:       decimal.NewFromInt(100),
		AvailableQuantity: 5,
		IsAvailable:       true,
	}
	if err := client.DB().Create(listing).Error; err != nil {
		t.Fatalf("seeding listing: %v", err)
	}

	buyer := types.Principal{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	order, err := checkoutSvc.PlaceOrder(context.Background(), buyer, checkout.PlaceOrderInput{
		ListingID:       listing.ID,
		Quantity:        2,
		DeliveryAddress: "14 Moi Avenue, Nakuru",
		PaymentMethod:   enums.PaymentMethodMpesa,
	})
	if err != nil {
		t.Fatalf("placing order: %v", err)
	}

	return &harness{svc: svc, client: client, buyer: buyer, order: order}
}

func (h *harness) initiate(t *testing.T) *CodeIssue {
	t.Helper()
	issue, err := h.svc.Initiate(context.Background(), h.buyer, InitiateInput{
		OrderID:     h.order.ID,
		PhoneNumber: "0712345678",
		Amount:      h.order.GrandTotal,
	})
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	return issue
}

func (h *harness) reloadPayment(t *testing.T, id uuid.UUID) models.Payment {
	t.Helper()
	var payment models.Payment
	if err := h.client.DB().Where("id = ?", id).First(&payment).Error; err != nil {
		t.Fatalf("reloading payment: %v", err)
	}
	return payment
}

func (h *harness) reloadOrder(t *testing.T) models.Order {
	t.Helper()
	var order models.Order
	if err := h.client.DB().Where("id = ?", h.order.ID).First(&order).Error; err != nil {
		t.Fatalf("reloading order: %v", err)
	}
	return order
}

func TestInitiateIssuesSixDigitCode(t *testing.T) {
	h := newHarness(t)
	issue := h.initiate(t)

	if !regexp.MustCompile(`^\d{6}$`).MatchString(issue.VerificationCode) {
		t.Fatalf("code must be 6 digits, got %q", issue.VerificationCode)
	}
	if issue.Payment.PhoneNumber != "254712345678" {
		t.Fatalf("phone must normalize, got %q", issue.Payment.PhoneNumber)
	}
	if issue.Payment.Status != enums.PaymentStatusPending {
		t.Fatalf("expected pending, got %s", issue.Payment.Status)
	}

	window := issue.Payment.ExpiresAt.Sub(issue.Payment.CreatedAt)
	if issue.Payment.CreatedAt.IsZero() {
		// CreatedAt is stamped on insert; fall back to a loose bound.
		window = time.Until(issue.Payment.ExpiresAt)
	}
	if window < 9*time.Minute || window > 11*time.Minute {
		t.Fatalf("expiry window must be ten minutes, got %s", window)
	}
}

func TestInitiateAmountMismatch(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Initiate(context.Background(), h.buyer, InitiateInput{
		OrderID:     h.order.ID,
		PhoneNumber: "0712345678",
		Amount:      decimal.RequireFromString("2500.01"),
	})
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected amount mismatch state conflict, got %v", err)
	}
}

func TestInitiateRejectsInvalidPhone(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Initiate(context.Background(), h.buyer, InitiateInput{
		OrderID:     h.order.ID,
		PhoneNumber: "0812345678",
		Amount:      h.order.GrandTotal,
	})
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInitiateRequiresPendingPayment(t *testing.T) {
	h := newHarness(t)
	if err := h.client.DB().Model(&models.Order{}).
		Where("id = ?", h.order.ID).
		Update("status", enums.OrderStatusPending).Error; err != nil {
		t.Fatalf("forcing status: %v", err)
	}

	_, err := h.svc.Initiate(context.Background(), h.buyer, InitiateInput{
		OrderID:     h.order.ID,
		PhoneNumber: "0712345678",
		Amount:      h.order.GrandTotal,
	})
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestVerifyCompletesPaymentAndOrder(t *testing.T) {
	h := newHarness(t)
	issue := h.initiate(t)

	result, err := h.svc.Verify(context.Background(), h.buyer, issue.Payment.ID, issue.VerificationCode)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if result.Payment.Status != enums.PaymentStatusCompleted {
		t.Fatalf("expected completed, got %s", result.Payment.Status)
	}
	if !regexp.MustCompile(`^MPESA-\d+-\d{5}$`).MatchString(result.TransactionRef) {
		t.Fatalf("unexpected transaction ref %q", result.TransactionRef)
	}
	if result.Payment.VerifiedAt == nil {
		t.Fatalf("verified_at must be stamped")
	}

	order := h.reloadOrder(t)
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("order must move to pending, got %s", order.Status)
	}
	if order.PaymentStatus != enums.OrderPaymentStatusPaid {
		t.Fatalf("order payment_status must be paid, got %s", order.PaymentStatus)
	}
}

func TestVerifyWrongCodeCountsAttempts(t *testing.T) {
	h := newHarness(t)
	issue := h.initiate(t)

	_, err := h.svc.Verify(context.Background(), h.buyer, issue.Payment.ID, "000000")
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["attempts_left"] != 4 {
		t.Fatalf("expected attempts_left 4, got %v", typed.Details())
	}

	payment := h.reloadPayment(t, issue.Payment.ID)
	if payment.Attempts != 1 {
		t.Fatalf("expected 1 attempt recorded, got %d", payment.Attempts)
	}
	if payment.LastAttemptAt == nil {
		t.Fatalf("last_attempt_at must be stamped")
	}
}

func TestVerifyLockoutAfterFiveAttempts(t *testing.T) {
	h := newHarness(t)
	issue := h.initiate(t)

	for i := 0; i < 5; i++ {
		_, err := h.svc.Verify(context.Background(), h.buyer, issue.Payment.ID, "000000")
		if err == nil {
			t.Fatalf("wrong code must fail (attempt %d)", i+1)
		}
	}

	payment := h.reloadPayment(t, issue.Payment.ID)
	if payment.Status != enums.PaymentStatusExpired {
		t.Fatalf("fifth failure must expire the payment, got %s", payment.Status)
	}

	// The correct code no longer helps.
	_, err := h.svc.Verify(context.Background(), h.buyer, issue.Payment.ID, issue.VerificationCode)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict after lockout, got %v", err)
	}

	order := h.reloadOrder(t)
	if order.Status != enums.OrderStatusPendingPayment {
		t.Fatalf("order must stay pending_payment, got %s", order.Status)
	}
}

func TestVerifyMarksExpiredLazily(t *testing.T) {
	h := newHarness(t)
	issue := h.initiate(t)

	h.svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err := h.svc.Verify(context.Background(), h.buyer, issue.Payment.ID, issue.VerificationCode)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected expiry state conflict, got %v", err)
	}

	// The expiry mark must persist even though the verify call failed.
	payment := h.reloadPayment(t, issue.Payment.ID)
	if payment.Status != enums.PaymentStatusExpired {
		t.Fatalf("payment must be marked expired, got %s", payment.Status)
	}
}

func TestVerifyAlreadyProcessed(t *testing.T) {
	h := newHarness(t)
	issue := h.initiate(t)

	if _, err := h.svc.Verify(context.Background(), h.buyer, issue.Payment.ID, issue.VerificationCode); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	_, err := h.svc.Verify(context.Background(), h.buyer, issue.Payment.ID, issue.VerificationCode)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict on replay, got %v", err)
	}
}

func TestResendRotatesCodeOnly(t *testing.T) {
	h := newHarness(t)
	issue := h.initiate(t)

	if _, err := h.svc.Verify(context.Background(), h.buyer, issue.Payment.ID, "000000"); err == nil {
		t.Fatalf("wrong code must fail")
	}
	before := h.reloadPayment(t, issue.Payment.ID)

	reissued, err := h.svc.Resend(context.Background(), h.buyer, issue.Payment.ID)
	if err != nil {
		t.Fatalf("resend failed: %v", err)
	}

	after := h.reloadPayment(t, issue.Payment.ID)
	if after.VerificationCode == before.VerificationCode {
		t.Fatalf("code must rotate")
	}
	if reissued.VerificationCode != after.VerificationCode {
		t.Fatalf("returned code must match stored code")
	}
	if !after.ExpiresAt.Equal(before.ExpiresAt) {
		t.Fatalf("expiry window must not reset")
	}
	if after.Attempts != before.Attempts {
		t.Fatalf("attempt counter must not reset, got %d want %d", after.Attempts, before.Attempts)
	}

	// The rotated code verifies.
	if _, err := h.svc.Verify(context.Background(), h.buyer, issue.Payment.ID, reissued.VerificationCode); err != nil {
		t.Fatalf("verify with rotated code failed: %v", err)
	}
}

func TestResendFailsOnExpired(t *testing.T) {
	h := newHarness(t)
	issue := h.initiate(t)

	h.svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err := h.svc.Resend(context.Background(), h.buyer, issue.Payment.ID)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	payment := h.reloadPayment(t, issue.Payment.ID)
	if payment.Status != enums.PaymentStatusExpired {
		t.Fatalf("payment must be marked expired, got %s", payment.Status)
	}
}

func TestStatusReturnsLatestPayment(t *testing.T) {
	h := newHarness(t)
	first := h.initiate(t)

	// Expire the first payment, then restart.
	h.svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, _ = h.svc.Verify(context.Background(), h.buyer, first.Payment.ID, "000000")
	h.svc.now = func() time.Time { return time.Now().Add(12 * time.Minute) }
	second, err := h.svc.Initiate(context.Background(), h.buyer, InitiateInput{
		OrderID:     h.order.ID,
		PhoneNumber: "0712345678",
		Amount:      h.order.GrandTotal,
	})
	if err != nil {
		t.Fatalf("second initiate failed: %v", err)
	}

	view, err := h.svc.Status(context.Background(), h.buyer, h.order.ID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if view.ID != second.Payment.ID {
		t.Fatalf("status must return the latest payment")
	}
}

func TestStatusHiddenFromOtherCustomers(t *testing.T) {
	h := newHarness(t)
	h.initiate(t)

	stranger := types.Principal{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	_, err := h.svc.Status(context.Background(), stranger, h.order.ID)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGatewayCallbackCompletesPayment(t *testing.T) {
	h := newHarness(t)
	issue := h.initiate(t)

	code, desc := h.svc.HandleGatewayCallback(context.Background(), CallbackInput{
		OrderID:    h.order.ID,
		ResultCode: 0,
		ResultDesc: "The service request is processed successfully.",
	})
	if code != 0 {
		t.Fatalf("expected result code 0, got %d (%s)", code, desc)
	}

	payment := h.reloadPayment(t, issue.Payment.ID)
	if payment.Status != enums.PaymentStatusCompleted {
		t.Fatalf("expected completed, got %s", payment.Status)
	}
	order := h.reloadOrder(t)
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("order must move to pending, got %s", order.Status)
	}
}

func TestGatewayCallbackRecordsFailure(t *testing.T) {
	h := newHarness(t)
	issue := h.initiate(t)

	code, _ := h.svc.HandleGatewayCallback(context.Background(), CallbackInput{
		OrderID:    h.order.ID,
		ResultCode: 1032,
		ResultDesc: "Request cancelled by user",
	})
	if code != 0 {
		t.Fatalf("failure recording must ack with 0, got %d", code)
	}

	payment := h.reloadPayment(t, issue.Payment.ID)
	if payment.Status != enums.PaymentStatusFailed {
		t.Fatalf("expected failed, got %s", payment.Status)
	}
	if payment.FailureReason == nil || *payment.FailureReason != "Request cancelled by user" {
		t.Fatalf("failure reason must persist")
	}
}

func TestGatewayCallbackUnknownOrder(t *testing.T) {
	h := newHarness(t)
	code, _ := h.svc.HandleGatewayCallback(context.Background(), CallbackInput{
		OrderID:    uuid.New(),
		ResultCode: 0,
	})
	if code != 1 {
		t.Fatalf("unknown order must return result code 1, got %d", code)
	}
}

func TestGenerateVerificationCodeStaysInRange(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 1000; i++ {
		code := generateVerificationCode()
		if !pattern.MatchString(code) {
			t.Fatalf("code must be 6 digits, got %q", code)
		}
		if code[0] == '0' {
			t.Fatalf("codes start at 100000, got %q", code)
		}
	}
}

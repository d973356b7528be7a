package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
)

// InitiateInput is the allow-listed field set for starting a payment.
type InitiateInput struct {
	OrderID     uuid.UUID
	PhoneNumber string
	Amount      decimal.Decimal
}

// CallbackInput mirrors the simulated gateway's callback body.
type CallbackInput struct {
	OrderID    uuid.UUID
	ResultCode int
	ResultDesc string
}

// PaymentView is the JSON shape returned to clients.
type PaymentView struct {
	ID             uuid.UUID           `json:"id"`
	OrderID        uuid.UUID           `json:"order_id"`
	Amount         decimal.Decimal     `json:"amount"`
	PhoneNumber    string              `json:"phone_number"`
	Method         enums.PaymentMethod `json:"method"`
	Status         enums.PaymentStatus `json:"status"`
	TransactionRef *string             `json:"transaction_ref,omitempty"`
	Attempts       int                 `json:"attempts"`
	FailureReason  *string             `json:"failure_reason,omitempty"`
	ExpiresAt      time.Time           `json:"expires_at"`
	VerifiedAt     *time.Time          `json:"verified_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// CodeIssue carries a freshly issued verification code back to the caller.
// The code rides in the response because delivery is simulated; a production
// gateway integration would push it out of band.
type CodeIssue struct {
	Payment          PaymentView `json:"payment"`
	VerificationCode string      `json:"verification_code"`
}

// VerifiedResult summarizes a successful verification.
type VerifiedResult struct {
	Payment        PaymentView `json:"payment"`
	TransactionRef string      `json:"transaction_ref"`
}

// ToView maps the persistence model to the response shape.
func ToView(payment *models.Payment) PaymentView {
	return PaymentView{
		ID:             payment.ID,
		OrderID:        payment.OrderID,
		Amount:         payment.Amount,
		PhoneNumber:    payment.PhoneNumber,
		Method:         payment.Method,
		Status:         payment.Status,
		TransactionRef: payment.TransactionRef,
		Attempts:       payment.Attempts,
		FailureReason:  payment.FailureReason,
		ExpiresAt:      payment.ExpiresAt,
		VerifiedAt:     payment.VerifiedAt,
		CreatedAt:      payment.CreatedAt,
	}
}

package payments

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gaslink-africa/gaslink-backend/api/middleware"
	"github.com/gaslink-africa/gaslink-backend/api/responses"
	"github.com/gaslink-africa/gaslink-backend/api/validators"
	internalpayments "github.com/gaslink-africa/gaslink-backend/internal/payments"
	pkgerrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
	"github.com/gaslink-africa/gaslink-backend/pkg/logger"
	"github.com/gaslink-africa/gaslink-backend/pkg/types"
)

// Initiate starts a verification payment for an order awaiting payment.
func Initiate(svc *internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initiateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := uuid.Parse(payload.OrderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid amount"))
			return
		}

		issue, err := svc.Initiate(r.Context(), principal, internalpayments.InitiateInput{
			OrderID:     orderID,
			PhoneNumber: payload.PhoneNumber,
			Amount:      amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, issue)
	}
}

// Verify checks the submitted code against the pending payment.
func Verify(svc *internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload verifyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := uuid.Parse(payload.PaymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		result, err := svc.Verify(r.Context(), principal, paymentID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// Resend rotates the verification code on a still-pending payment.
func Resend(svc *internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resendRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := uuid.Parse(payload.PaymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment id"))
			return
		}

		issue, err := svc.Resend(r.Context(), principal, paymentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, issue)
	}
}

// Status returns the latest payment for an order.
func Status(svc *internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("order_id"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required"))
			return
		}
		orderID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order_id"))
			return
		}

		view, err := svc.Status(r.Context(), principal, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// MpesaCallback receives the simulated gateway's asynchronous result. The
// gateway expects a {ResultCode, ResultDesc} acknowledgement on every call,
// including malformed ones, so this handler never writes an error envelope.
func MpesaCallback(svc *internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload callbackRequest
		decoder := json.NewDecoder(r.Body)
		if err := decoder.Decode(&payload); err != nil {
			writeCallbackAck(w, 1, "invalid callback body")
			return
		}
		orderID, err := uuid.Parse(strings.TrimSpace(payload.OrderID))
		if err != nil {
			writeCallbackAck(w, 1, "invalid order id")
			return
		}

		code, desc := svc.HandleGatewayCallback(r.Context(), internalpayments.CallbackInput{
			OrderID:    orderID,
			ResultCode: payload.ResultCode,
			ResultDesc: payload.ResultDesc,
		})
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"order_id":    orderID.String(),
				"result_code": code,
			})
			logg.Info(ctx, "gateway callback processed")
		}
		writeCallbackAck(w, code, desc)
	}
}

type initiateRequest struct {
	OrderID     string `json:"order_id" validate:"required,uuid4"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
}

type verifyRequest struct {
	PaymentID string `json:"payment_id" validate:"required,uuid4"`
	Code      string `json:"code" validate:"required,len=6,numeric"`
}

type resendRequest struct {
	PaymentID string `json:"payment_id" validate:"required,uuid4"`
}

type callbackRequest struct {
	OrderID    string `json:"order_id"`
	ResultCode int    `json:"result_code"`
	ResultDesc string `json:"result_desc"`
}

type callbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func writeCallbackAck(w http.ResponseWriter, code int, desc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(callbackAck{ResultCode: code, ResultDesc: desc}); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode callback ack","err":"%v"}`, err)
	}
}

func requirePrincipal(r *http.Request) (types.Principal, error) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return types.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return principal, nil
}

package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gaslink-africa/gaslink-backend/api/middleware"
	"github.com/gaslink-africa/gaslink-backend/api/responses"
	"github.com/gaslink-africa/gaslink-backend/api/validators"
	"github.com/gaslink-africa/gaslink-backend/internal/checkout"
	internalorders "github.com/gaslink-africa/gaslink-backend/internal/orders"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
	pkgerrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
	"github.com/gaslink-africa/gaslink-backend/pkg/logger"
	"github.com/gaslink-africa/gaslink-backend/pkg/pagination"
	"github.com/gaslink-africa/gaslink-backend/pkg/types"
)

// Place creates an order from the customer's selection.
func Place(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listingID, err := uuid.Parse(payload.ListingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid listing id"))
			return
		}
		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.PlaceOrder(r.Context(), principal, checkout.PlaceOrderInput{
			ListingID:       listingID,
			Quantity:        payload.Quantity,
			DeliveryAddress: payload.DeliveryAddress,
			DeliveryLat:     payload.DeliveryLat,
			DeliveryLng:     payload.DeliveryLng,
			PaymentMethod:   method,
			CustomerNotes:   payload.CustomerNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.ToView(order))
	}
}

// List returns the caller's side of the order book.
func List(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, next, err := svc.List(r.Context(), principal, internalorders.ListParams{
			Status: strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderPage{
			Orders:     internalorders.ToViews(rows),
			NextCursor: next,
		})
	}
}

// Detail returns one order visible to the caller.
func Detail(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetByID(r.Context(), principal, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToView(order))
	}
}

// AgentUpdateStatus drives the order lifecycle on behalf of the agent.
func AgentUpdateStatus(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		estimated, err := parseTimestamp(payload.EstimatedDeliveryAt, "estimated_delivery_at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateStatusByAgent(r.Context(), principal, orderID, internalorders.UpdateStatusInput{
			Target:              target,
			AgentNotes:          payload.AgentNotes,
			CancellationReason:  payload.CancellationReason,
			EstimatedDeliveryAt: estimated,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToView(order))
	}
}

// CustomerCancel cancels a pending or confirmed order for its customer.
func CustomerCancel(svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelOrder(r.Context(), principal, orderID, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToView(order))
	}
}

// Rate records the customer's one-time rating on a delivered order.
func Rate(svc *internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := requirePrincipal(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload ratingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AddRating(r.Context(), principal, orderID, payload.Rating, payload.Review)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToView(order))
	}
}

type placeOrderRequest struct {
	ListingID       string   `json:"listing_id" validate:"required,uuid4"`
	Quantity        int      `json:"quantity" validate:"required,min=1"`
	DeliveryAddress string   `json:"delivery_address" validate:"required"`
	DeliveryLat     *float64 `json:"delivery_lat,omitempty"`
	DeliveryLng     *float64 `json:"delivery_lng,omitempty"`
	PaymentMethod   string   `json:"payment_method" validate:"required"`
	CustomerNotes   *string  `json:"customer_notes,omitempty"`
}

type updateStatusRequest struct {
	Status              string  `json:"status" validate:"required"`
	AgentNotes          *string `json:"agent_notes,omitempty"`
	CancellationReason  *string `json:"cancellation_reason,omitempty"`
	EstimatedDeliveryAt *string `json:"estimated_delivery_at,omitempty"`
}

type cancelRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type ratingRequest struct {
	Rating int     `json:"rating" validate:"required,min=1,max=5"`
	Review *string `json:"review,omitempty"`
}

type orderPage struct {
	Orders     []internalorders.OrderView `json:"orders"`
	NextCursor string                     `json:"next_cursor,omitempty"`
}

func requirePrincipal(r *http.Request) (types.Principal, error) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		return types.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return principal, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func parseTimestamp(value *string, field string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(*value))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field)
	}
	return &t, nil
}

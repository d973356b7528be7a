package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gaslink-africa/gaslink-backend/pkg/db/models"
	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
)

// UpdateStatusInput is the allow-listed patch an agent may apply.
type UpdateStatusInput struct {
	Target              enums.OrderStatus
	AgentNotes          *string
	CancellationReason  *string
	EstimatedDeliveryAt *time.Time
}

// ListParams carries pagination inputs for order listings.
type ListParams struct {
	Status string
	Limit  int
	Cursor string
}

// OrderView is the JSON shape returned to clients.
type OrderView struct {
	ID                  uuid.UUID                `json:"id"`
	OrderNumber         string                   `json:"order_number"`
	CustomerID          uuid.UUID                `json:"customer_id"`
	AgentID             uuid.UUID                `json:"agent_id"`
	ListingID           uuid.UUID                `json:"listing_id"`
	Quantity            int                      `json:"quantity"`
	UnitPrice           decimal.Decimal          `json:"unit_price"`
	TotalPrice          decimal.Decimal          `json:"total_price"`
	DeliveryFee         decimal.Decimal          `json:"delivery_fee"`
	GrandTotal          decimal.Decimal          `json:"grand_total"`
	DeliveryAddress     string                   `json:"delivery_address"`
	DeliveryLat         *float64                 `json:"delivery_lat,omitempty"`
	DeliveryLng         *float64                 `json:"delivery_lng,omitempty"`
	Status              enums.OrderStatus        `json:"status"`
	PaymentStatus       enums.OrderPaymentStatus `json:"payment_status"`
	PaymentMethod       enums.PaymentMethod      `json:"payment_method"`
	CustomerNotes       *string                  `json:"customer_notes,omitempty"`
	AgentNotes          *string                  `json:"agent_notes,omitempty"`
	CancellationReason  *string                  `json:"cancellation_reason,omitempty"`
	Rating              *int                     `json:"rating,omitempty"`
	Review              *string                  `json:"review,omitempty"`
	EstimatedDeliveryAt *time.Time               `json:"estimated_delivery_at,omitempty"`
	DeliveredAt         *time.Time               `json:"delivered_at,omitempty"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}

// ToView maps the persistence model to the response shape.
func ToView(order *models.Order) OrderView {
	return OrderView{
		ID:                  order.ID,
		OrderNumber:         order.OrderNumber,
		CustomerID:          order.CustomerID,
		AgentID:             order.AgentID,
		ListingID:           order.ListingID,
		Quantity:            order.Quantity,
		UnitPrice:           order.UnitPrice,
		TotalPrice:          order.TotalPrice,
		DeliveryFee:         order.DeliveryFee,
		GrandTotal:          order.GrandTotal,
		DeliveryAddress:     order.DeliveryAddress,
		DeliveryLat:         order.DeliveryLat,
		DeliveryLng:         order.DeliveryLng,
		Status:              order.Status,
		PaymentStatus:       order.PaymentStatus,
		PaymentMethod:       order.PaymentMethod,
		CustomerNotes:       order.CustomerNotes,
		AgentNotes:          order.AgentNotes,
		CancellationReason:  order.CancellationReason,
		Rating:              order.Rating,
		Review:              order.Review,
		EstimatedDeliveryAt: order.EstimatedDeliveryAt,
		DeliveredAt:         order.DeliveredAt,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
}

// ToViews maps a page of orders.
func ToViews(rows []models.Order) []OrderView {
	views := make([]OrderView, 0, len(rows))
	for i := range rows {
		views = append(views, ToView(&rows[i]))
	}
	return views
}

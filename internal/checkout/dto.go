package checkout

import (
	"github.com/google/uuid"

	"github.com/gaslink-africa/gaslink-backend/pkg/enums"
)

// PlaceOrderInput is the allow-listed field set for order placement.
type PlaceOrderInput struct {
	ListingID       uuid.UUID
	Quantity        int
	DeliveryAddress string
	DeliveryLat     *float64
	DeliveryLng     *float64
	PaymentMethod   enums.PaymentMethod
	CustomerNotes   *string
}

package enums

import "fmt"

// PaymentMethod identifies how an order is settled.
type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodMpesa PaymentMethod = "mpesa"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodMpesa,
}

func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsElectronic reports whether settlement happens through the verification flow.
func (p PaymentMethod) IsElectronic() bool {
	return p == PaymentMethodMpesa
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}

package types

// SuccessEnvelope is the wire shape of every successful response.
type SuccessEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// APIError carries the machine-readable error payload.
type APIError struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope is the wire shape of every failed response.
type ErrorEnvelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Error   *APIError `json:"error,omitempty"`
}

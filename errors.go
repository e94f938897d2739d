package paysheet

import "fmt"

// RequestError represents a payment-request coordination error
type RequestError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeInvalidOptions   = "invalid_options"
	ErrCodeProbeFailed      = "probe_failed"
	ErrCodeResponderFailed  = "responder_failed"
	ErrCodeTransportClosed  = "transport_closed"
	ErrCodeTransportFailed  = "transport_failed"
	ErrCodeUnknownRequest   = "unknown_request"
	ErrCodeUnsupportedEvent = "unsupported_event"
)

// NewRequestError creates a new coordination error
func NewRequestError(code, message string, details map[string]interface{}) *RequestError {
	return &RequestError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

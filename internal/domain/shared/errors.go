package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped and re-worded instances
// still compare equal to their sentinel under errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithMessage returns a copy of the error carrying a more specific message.
// The code, and therefore errors.Is identity, is preserved.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidIdentifier      = NewDomainError("INVALID_IDENTIFIER", "Order identifier is empty or malformed")
	ErrIncompleteOrder        = NewDomainError("INCOMPLETE_ORDER", "Order is missing required fields for creation")
	ErrNotFound               = NewDomainError("NOT_FOUND", "Resource not found")
	ErrNoProductsSelected     = NewDomainError("NO_PRODUCTS_SELECTED", "At least one product line must be selected")
	ErrCarrierRejected        = NewDomainError("CARRIER_REJECTED", "Carrier rejected the request")
	ErrTrackingUnavailable    = NewDomainError("TRACKING_UNAVAILABLE", "Carrier tracking information is unavailable")
	ErrConcurrentModification = NewDomainError("CONCURRENT_MODIFICATION", "Order is being modified by another operation")
	ErrInvalidState           = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

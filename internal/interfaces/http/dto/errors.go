package dto

import (
	"net/http"

	"github.com/orderdesk/backend/internal/domain/shared"
)

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used when request validation fails
	ErrCodeValidation = "VALIDATION_ERROR"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,

	shared.ErrInvalidIdentifier.Code:      http.StatusBadRequest,
	shared.ErrIncompleteOrder.Code:        http.StatusUnprocessableEntity,
	shared.ErrNotFound.Code:               http.StatusNotFound,
	shared.ErrNoProductsSelected.Code:     http.StatusUnprocessableEntity,
	shared.ErrCarrierRejected.Code:        http.StatusBadGateway,
	shared.ErrTrackingUnavailable.Code:    http.StatusBadGateway,
	shared.ErrConcurrentModification.Code: http.StatusConflict,
	shared.ErrInvalidState.Code:           http.StatusUnprocessableEntity,

	"COMMERCE_NOT_CONFIGURED": http.StatusServiceUnavailable,
	"CARRIER_NOT_CONFIGURED":  http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes fall back to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

package dto

import "net/http"

// Error codes surfaced by the HTTP layer. The domain layer produces
// the same codes via shared.DomainError, so no translation happens
// between the two.
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	// ErrCodeInvalidInput is used for invalid or malformed input
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeInvalidState is used when an operation is invalid for the
	// document's current state
	ErrCodeInvalidState = "INVALID_STATE"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	// ErrCodeInsufficientStock is used when sellable stock cannot cover
	// an order line
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	// ErrCodeActorResolution is used when no acting user could be
	// resolved for a state-changing operation
	ErrCodeActorResolution = "ACTOR_RESOLUTION"
	// ErrCodeUnauthorized is used when authentication is missing or invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeDependencyFailure is used when a downstream dependency fails
	ErrCodeDependencyFailure = "DEPENDENCY_FAILURE"
	// ErrCodeInternal is used when the error type is unknown
	ErrCodeInternal = "INTERNAL"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeInvalidInput: http.StatusBadRequest,

	// Conflicts with current server state
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeInvalidState:        http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Well-formed requests the business rules reject
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,
	ErrCodeActorResolution:   http.StatusUnprocessableEntity,

	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeDependencyFailure: http.StatusInternalServerError,
	ErrCodeInternal:          http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

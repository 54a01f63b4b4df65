package dto

// APIError is the structured error body every failing endpoint returns.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeConflict      = "conflict"
	ErrCodeInternalError = "internal_error"
)

// BadRequestError creates a bad request error response.
func BadRequestError(message string) APIError {
	return APIError{Code: ErrCodeBadRequest, Message: message}
}

// ConflictError reports a run already in flight for the account.
func ConflictError(message string) APIError {
	return APIError{Code: ErrCodeConflict, Message: message}
}

// InternalError creates an internal server error response.
func InternalError() APIError {
	return APIError{Code: ErrCodeInternalError, Message: "an internal error occurred"}
}

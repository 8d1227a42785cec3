package errors

import "net/http"

type HTTPError interface {
	error
	StatusCode() int
}

type apiError struct {
	msg  string
	code int
}

func (e *apiError) Error() string   { return e.msg }
func (e *apiError) StatusCode() int { return e.code }

var (
	ErrMissedSlot       = &apiError{msg: "no block at slot", code: http.StatusNotFound}
	ErrValidatorUnknown = &apiError{msg: "validator not found", code: http.StatusNotFound}
	ErrEmptyResponse    = &apiError{msg: "empty response from source", code: http.StatusBadGateway}

	ErrRequestTimeout = &apiError{"request timed out", http.StatusGatewayTimeout}
	ErrInternal       = &apiError{msg: "internal server error", code: http.StatusInternalServerError}
)

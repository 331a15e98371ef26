package handler

import (
	"errors"
	"net/http"
)

var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError is an error with a status code. Key is the client-facing message.
type HTTPError struct {
	Code int
	Key  string
}

func (e HTTPError) Error() string {
	return e.Key
}

// NewHTTPError creates an HTTPError.
func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}

var (
	ErrBadRequest          = HTTPError{Code: http.StatusBadRequest, Key: "Bad request"}
	ErrUnauthorized        = HTTPError{Code: http.StatusUnauthorized, Key: "Unauthorized"}
	ErrPaymentRequired     = HTTPError{Code: http.StatusPaymentRequired, Key: "Payment required"}
	ErrNotFound            = HTTPError{Code: http.StatusNotFound, Key: "Not found"}
	ErrInternalServerError = HTTPError{Code: http.StatusInternalServerError, Key: "Internal server error"}
	ErrBadGateway          = HTTPError{Code: http.StatusBadGateway, Key: "Bad gateway"}
	ErrServiceUnavailable  = HTTPError{Code: http.StatusServiceUnavailable, Key: "Service unavailable"}
)

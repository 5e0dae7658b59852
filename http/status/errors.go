package status

import "errors"

// HTTPError carries the status code a failure should be answered with.
type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrBadRequest          = NewError(BadRequest, "bad request")
	ErrBadChunk            = NewError(BadRequest, "malformed chunk-encoded data")
	ErrBodyTooLarge        = NewError(RequestEntityTooLarge, "request body is too large")
	ErrRequestTimeout      = NewError(RequestTimeout, "request body read timed out")
	ErrInternalServerError = NewError(InternalServerError, "internal server error")
	ErrTooManyRequests     = NewError(TooManyRequests, "too many requests")
	ErrHeadTooLarge        = NewError(RequestHeaderFieldsTooLarge, "request head is too large")
	ErrUnsupportedProtocol = NewError(HTTPVersionNotSupported, "protocol is not supported")
)

// CodeOf returns the code an error should be answered with. Errors other than HTTPError
// are answered with 500 Internal Server Error.
func CodeOf(err error) Code {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}

	return InternalServerError
}

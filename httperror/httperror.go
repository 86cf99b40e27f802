package httperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

type HTTPError struct {
	error
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e *HTTPError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.Code)
	return nil
}

func New(code int, message string, cause error) *HTTPError {
	return &HTTPError{
		error:   cause,
		Code:    code,
		Message: message,
	}
}

func InternalServerError(message string, err error) *HTTPError {
	return New(http.StatusInternalServerError, "internal server error", fmt.Errorf("%s: %w", message, err))
}

func BadRequest(message string) *HTTPError {
	return New(http.StatusBadRequest, message, errors.New(message))
}

func BadRequestWithError(message string, err error) *HTTPError {
	return New(http.StatusBadRequest, message, fmt.Errorf("%s: %w", message, err))
}

// UnprocessableEntity reports a payload the configured parser rejected.
func UnprocessableEntity(message string, err error) *HTTPError {
	return New(http.StatusUnprocessableEntity, message, fmt.Errorf("%s: %w", message, err))
}

// BadGateway reports a transport failure while publishing a request.
func BadGateway(message string, err error) *HTTPError {
	return New(http.StatusBadGateway, message, fmt.Errorf("%s: %w", message, err))
}

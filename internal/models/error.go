package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorResponse is the error envelope written by the console API.
type ErrorResponse struct {
	Msg string `json:"msg"`
}

// ResponseError is returned by the API facades for every non-2xx answer.
// StatusCode is http.StatusGatewayTimeout when the server could not be reached.
type ResponseError struct {
	StatusCode int
	Msg        string
}

func (e *ResponseError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Msg)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var respErr *ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

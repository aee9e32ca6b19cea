package api

import (
	"fmt"
	"net/http"
)

// RequestError is a request-scoped failure carrying the HTTP status it maps
// to. Handlers construct these through the helpers below and write them once
// at the response boundary; storage causes never travel inside a
// RequestError message.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// ValidationError reports a malformed or incomplete request payload.
func ValidationError(format string, args ...any) *RequestError {
	return &RequestError{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// AuthRequiredError reports a missing caller identity.
func AuthRequiredError(message string) *RequestError {
	return &RequestError{Status: http.StatusUnauthorized, Message: message}
}

// NotFoundError reports a missing resource.
func NotFoundError(message string) *RequestError {
	return &RequestError{Status: http.StatusNotFound, Message: message}
}

// MethodNotAllowedError reports an unsupported HTTP method.
func MethodNotAllowedError(method string) *RequestError {
	return &RequestError{Status: http.StatusMethodNotAllowed, Message: fmt.Sprintf("method %s not allowed", method)}
}

// WriteRequestError renders a RequestError as the standard JSON error body.
func WriteRequestError(w http.ResponseWriter, err *RequestError) {
	writeJSON(w, err.Status, map[string]string{"error": err.Message})
}

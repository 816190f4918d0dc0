package keel

import (
	"errors"
	"fmt"
	"net/http"
)

// Wiring-time sentinel errors. These surface during application
// construction, before the server starts listening, and always abort
// startup. They are configuration errors, never request errors.
var (
	ErrNotRegistered          = errors.New("metadata not registered")
	ErrDuplicateRegistration  = errors.New("duplicate registration")
	ErrDuplicateMiddleware    = errors.New("duplicate middleware")
	ErrUnknownMiddleware      = errors.New("unknown middleware")
	ErrDuplicateMigration     = errors.New("duplicate migration")
	ErrUnsupportedMethod      = errors.New("unsupported HTTP method")
	ErrDependencyCycle        = errors.New("dependency cycle")
	ErrUnresolvableDependency = errors.New("unresolvable dependency")
	ErrRegistryFrozen         = errors.New("registry is frozen")
)

// Kind classifies a request-time application error.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindParameter      Kind = "parameter"
	KindResource       Kind = "resource"
	KindInternal       Kind = "internal"
)

// Error is a kind-tagged application error with an HTTP status, a message,
// and optional structured details for API consumers.
type Error struct {
	Kind    Kind   `json:"-"`
	Status  int    `json:"status_code"`
	Message string `json:"message"`
	Data    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// WithData attaches structured details and returns the error.
func (e *Error) WithData(data any) *Error {
	e.Data = data
	return e
}

// AuthenticationError creates a 401 error: no valid principal was
// established for a required scheme.
func AuthenticationError(message string) *Error {
	return &Error{Kind: KindAuthentication, Status: http.StatusUnauthorized, Message: message}
}

// AuthorizationError creates a 403 error: the principal lacks a required
// permission or a policy rejected the request.
func AuthorizationError(message string) *Error {
	return &Error{Kind: KindAuthorization, Status: http.StatusForbidden, Message: message}
}

// ParameterError creates a 400 error: a required argument is missing or a
// required resolution produced no value.
func ParameterError(message string) *Error {
	return &Error{Kind: KindParameter, Status: http.StatusBadRequest, Message: message}
}

// ResourceError creates a 409 error for conflicting resource state.
func ResourceError(message string) *Error {
	return &Error{Kind: KindResource, Status: http.StatusConflict, Message: message}
}

// InternalError creates a 500 error.
func InternalError(message string) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: message}
}

// ErrorMapper classifies errors thrown by pipeline stages into a response.
type ErrorMapper struct {
	log Logger
}

// NewErrorMapper creates an error mapper that logs through the given logger.
func NewErrorMapper(log Logger) *ErrorMapper {
	return &ErrorMapper{log: log}
}

// Map classifies err. A recognized *Error maps directly. Anything else maps
// to a generic 500; the original error is never exposed to the client.
func (m *ErrorMapper) Map(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError("internal server error")
}

// Write maps err, logs it with full handler context, and writes the mapped
// status and message to the response. Unrecognized errors are logged with
// their real message but answered with a generic body.
func (m *ErrorMapper) Write(c Context, handler, method, route string, err error) error {
	mapped := m.Map(err)
	m.log.Error("request failed: handler=%s method=%s route=%s kind=%s status=%d err=%v",
		handler, method, route, mapped.Kind, mapped.Status, err)
	return c.JSON(mapped.Status, mapped)
}

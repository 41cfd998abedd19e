package apperr

import (
	"errors"
	"net/http"
)

// Error is a classified failure carrying the taxonomy code reported in the
// standard response envelope and the HTTP status it maps to.
type Error struct {
	Code    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// WithMessage copies the error with an overridden message but the same
// code and status.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Status: e.Status, Message: msg}
}

// Is compares by taxonomy code, so a derived message still matches its
// sentinel under errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCredentials = &Error{Code: "InvalidCredentials", Status: http.StatusUnauthorized, Message: "invalid email or password"}
	ErrInvalidToken       = &Error{Code: "InvalidToken", Status: http.StatusUnauthorized, Message: "invalid token"}
	ErrTokenExpired       = &Error{Code: "TokenExpired", Status: http.StatusUnauthorized, Message: "token expired"}
	ErrReplayDetected     = &Error{Code: "ReplayDetected", Status: http.StatusUnauthorized, Message: "refresh token already used"}
	ErrInsufficientPerms  = &Error{Code: "InsufficientPermissions", Status: http.StatusForbidden, Message: "insufficient permissions"}
	ErrTeamAccessDenied   = &Error{Code: "TeamAccessDenied", Status: http.StatusForbidden, Message: "team scope access denied"}
	ErrGatewayUnavailable = &Error{Code: "GatewayUnavailable", Status: http.StatusBadGateway, Message: "downstream service unavailable"}
	ErrRouteNotFound      = &Error{Code: "RouteNotFound", Status: http.StatusNotFound, Message: "no route matches the requested path"}
	ErrNotFound           = &Error{Code: "NotFound", Status: http.StatusNotFound, Message: "resource not found"}
	ErrConflict           = &Error{Code: "Conflict", Status: http.StatusConflict, Message: "resource conflict"}
	ErrValidation         = &Error{Code: "ValidationError", Status: http.StatusBadRequest, Message: "invalid request"}
)

// From extracts the classified error, defaulting to a 500-class wrapper so
// handlers never leak unclassified errors without an envelope.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return &Error{Code: "InternalError", Status: http.StatusInternalServerError, Message: err.Error()}
}

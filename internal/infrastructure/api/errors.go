package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/joacominatel/peerpods/internal/application"
	"github.com/joacominatel/peerpods/internal/domain"
	"github.com/joacominatel/peerpods/internal/infrastructure/auth"
)

// statusRules maps sentinel errors to response codes. first match wins.
var statusRules = []struct {
	target error
	code   int
}{
	{domain.ErrInvalidInput, http.StatusBadRequest},

	{auth.ErrMissingToken, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{auth.ErrTokenExpired, http.StatusUnauthorized},
	{auth.ErrInvalidSignature, http.StatusUnauthorized},
	{auth.ErrInvalidClaims, http.StatusUnauthorized},

	{domain.ErrNotMember, http.StatusForbidden},
	{domain.ErrForbidden, http.StatusForbidden},

	{application.ErrProfileNotFound, http.StatusNotFound},
	{application.ErrCommunityNotFound, http.StatusNotFound},
	{application.ErrPartnershipNotFound, http.StatusNotFound},
	{application.ErrNoPartnerAvailable, http.StatusNotFound},
	{domain.ErrNotFound, http.StatusNotFound},

	{application.ErrUsernameTaken, http.StatusConflict},
	{application.ErrSlugAlreadyExists, http.StatusConflict},
	{domain.ErrCommunityInactive, http.StatusConflict},
	{domain.ErrPartnershipEnded, http.StatusConflict},
	{domain.ErrAlreadyPartnered, http.StatusConflict},
	{domain.ErrAlreadyExists, http.StatusConflict},

	{context.DeadlineExceeded, http.StatusServiceUnavailable},
}

// mapError converts any handler error into an echo.HTTPError.
// unknown errors become a 500 without leaking their message.
func mapError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	for _, rule := range statusRules {
		if errors.Is(err, rule.target) {
			return &echo.HTTPError{Code: rule.code, Message: err.Error(), Internal: err}
		}
	}

	return &echo.HTTPError{Code: http.StatusInternalServerError, Message: "internal server error", Internal: err}
}

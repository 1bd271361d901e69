package api

import (
	"github.com/labstack/echo/v4"

	"github.com/joacominatel/peerpods/internal/infrastructure/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsContextKey holds the validated token claims of the caller.
	ClaimsContextKey contextKey = "auth_claims"
)

// TokenValidator turns a raw Authorization header into claims.
type TokenValidator interface {
	ValidateToken(raw string) (*auth.Claims, error)
}

// AuthConfig holds authentication middleware configuration.
type AuthConfig struct {
	Validator TokenValidator

	// Skipper defines a function to skip auth for certain routes.
	Skipper func(c echo.Context) bool
}

// AuthMiddleware requires a valid bearer token and stores its claims in the context.
// anon tokens are rejected, every api route acts on behalf of a signed-in user.
func AuthMiddleware(config AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Skipper != nil && config.Skipper(c) {
				return next(c)
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return auth.ErrMissingToken
			}

			claims, err := config.Validator.ValidateToken(header)
			if err != nil {
				return err
			}
			if !claims.IsAuthenticated() {
				return auth.ErrInvalidClaims
			}

			c.Set(string(ClaimsContextKey), claims)
			return next(c)
		}
	}
}

// GetClaims returns the caller's claims, or nil on unauthenticated routes.
func GetClaims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(string(ClaimsContextKey)).(*auth.Claims)
	return claims
}

// GetUserExternalID retrieves the authenticated user's external ID from context.
// returns empty string if not authenticated.
func GetUserExternalID(c echo.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.ExternalID()
	}
	return ""
}

// PublicRoutesSkipper returns a skipper function that skips auth for public routes.
func PublicRoutesSkipper(publicPaths ...string) func(echo.Context) bool {
	pathSet := make(map[string]bool)
	for _, p := range publicPaths {
		pathSet[p] = true
	}

	return func(c echo.Context) bool {
		return pathSet[c.Path()]
	}
}

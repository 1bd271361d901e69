package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the supabase access token peerpods reads.
type Claims struct {
	jwt.RegisteredClaims

	// role is "authenticated" for signed-in users, "anon" otherwise
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`

	// user_metadata is user editable, treat it as a hint only
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// ExternalID returns the subject claim, the auth provider's user id.
func (c *Claims) ExternalID() string {
	return c.Subject
}

// IsAuthenticated reports whether the token belongs to a signed-in user.
func (c *Claims) IsAuthenticated() bool {
	return c.Role == "authenticated"
}

// PreferredUsername returns the username suggested by the auth provider, if any.
func (c *Claims) PreferredUsername() string {
	for _, key := range []string{"user_name", "preferred_username"} {
		if v, ok := c.UserMetadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

var (
	ErrMissingToken     = errors.New("missing authorization token")
	ErrInvalidToken     = errors.New("invalid token format")
	ErrTokenExpired     = errors.New("token has expired")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrInvalidClaims    = errors.New("invalid token claims")
)

// JWTValidator validates HS256 supabase access tokens.
type JWTValidator struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

// NewJWTValidator creates a validator for tokens signed with secret.
func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{
		secret: []byte(secret),
		leeway: 30 * time.Second,
		now:    time.Now,
	}
}

// WithClock overrides the time source used for expiry checks.
func (v *JWTValidator) WithClock(now func() time.Time) *JWTValidator {
	v.now = now
	return v
}

// ValidateToken parses a raw token (with or without the Bearer prefix) and returns its claims.
func (v *JWTValidator) ValidateToken(raw string) (*Claims, error) {
	raw = strings.TrimSpace(ExtractBearerToken(raw))
	if raw == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return v.secret, nil
		},
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrInvalidToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	case !token.Valid:
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject claim", ErrInvalidClaims)
	}

	return claims, nil
}

// ExtractBearerToken strips the Bearer scheme from an Authorization header value.
func ExtractBearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return header
}

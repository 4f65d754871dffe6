package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	// HeaderUserID carries a caller id in trusted (development) setups and
	// is a rate-limit identity fallback.
	HeaderUserID = "X-User-Id"

	userIDKey = "user_id"
)

// SessionClaims are the claims of the session token issued by the front end.
type SessionClaims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the user id, preferring the registered subject.
func (c *SessionClaims) Identity() string {
	if c.RegisteredClaims.Subject != "" {
		return c.RegisteredClaims.Subject
	}
	return c.UserID
}

type AuthConfig struct {
	Secret []byte
	Issuer string
	// TrustUserHeader accepts X-User-Id without a token. Development only.
	TrustUserHeader bool
}

// Auth requires a valid HS256 bearer session token and stores its subject
// as the user id.
func Auth(cfg AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" && cfg.TrustUserHeader {
				if uid := strings.TrimSpace(c.Request().Header.Get(HeaderUserID)); uid != "" {
					c.Set(userIDKey, uid)
					return next(c)
				}
			}
			if header == "" {
				return unauthorized(c, "Authorization header required")
			}

			parts := strings.Fields(header)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return unauthorized(c, "Invalid authorization header format")
			}

			claims, err := ParseSessionToken(parts[1], cfg)
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return unauthorized(c, "Token expired")
				}
				return unauthorized(c, "Invalid token")
			}
			uid := claims.Identity()
			if uid == "" {
				return unauthorized(c, "Invalid token claims")
			}
			c.Set(userIDKey, uid)
			return next(c)
		}
	}
}

// ParseSessionToken validates signature, algorithm, expiry and issuer.
func ParseSessionToken(token string, cfg AuthConfig) (*SessionClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueSessionToken signs a session token, used by tooling and tests.
func IssueSessionToken(cfg AuthConfig, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
}

// UserID returns the authenticated user id, if any.
func UserID(c echo.Context) string {
	uid, _ := c.Get(userIDKey).(string)
	return uid
}

func unauthorized(c echo.Context, msg string) error {
	return writeError(c, http.StatusUnauthorized, "ERR_UNAUTHORIZED", msg, nil)
}

package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/vaayushanti/bagspec/common/config"
	"golang.org/x/crypto/bcrypt"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UsernameKey is the context key for storing the authenticated admin
	UsernameKey ContextKey = "username"

	// SessionCookie holds the signed admin session
	SessionCookie = "bagspec_session"

	// LoginPath is where unauthenticated page requests are sent
	LoginPath = "/admin/login"
)

// ErrInvalidSession is returned for a missing, expired or forged session
var ErrInvalidSession = errors.New("invalid session")

// Authenticator checks admin credentials and issues session cookies.
// Sessions are HS256 JWTs; nothing is stored server side.
type Authenticator struct {
	username string
	hash     []byte
	secret   []byte
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

// NewAuthenticator builds an authenticator from the admin config. A plain
// password is hashed once here so it is never compared directly.
func NewAuthenticator(cfg config.AdminConfig) (*Authenticator, error) {
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	var hash []byte
	switch {
	case cfg.PasswordHash != "":
		hash = []byte(cfg.PasswordHash)
		if _, err := bcrypt.Cost(hash); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
	case cfg.Password != "":
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash admin password: %w", err)
		}
	default:
		return nil, fmt.Errorf("admin password is required")
	}

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	return &Authenticator{
		username: cfg.Username,
		hash:     hash,
		secret:   []byte(cfg.SessionSecret),
		ttl:      ttl,
		secure:   cfg.SecureCookie,
		now:      time.Now,
	}, nil
}

// CheckCredentials reports whether username and password match the admin account
func (a *Authenticator) CheckCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username)) == 1
	// Always run bcrypt so a wrong username costs the same as a wrong password
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	return userOK && passOK
}

// IssueSession returns a signed session cookie for the admin
func (a *Authenticator) IssueSession() (*http.Cookie, error) {
	now := a.now()
	expires := now.Add(a.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   a.username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session: %w", err)
	}

	return &http.Cookie{
		Name:     SessionCookie,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// ClearSession returns a cookie that removes the session
func (a *Authenticator) ClearSession() *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Verify parses a session value and returns the admin it belongs to
func (a *Authenticator) Verify(value string) (string, error) {
	if value == "" {
		return "", ErrInvalidSession
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}

	if claims.Subject != a.username {
		return "", ErrInvalidSession
	}
	return claims.Subject, nil
}

// RequireAdmin rejects requests without a valid session. Page routes are
// redirected to the login page; API routes get a 401 JSON body.
func (a *Authenticator) RequireAdmin(pages bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var value string
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				value = cookie.Value
			}

			username, err := a.Verify(value)
			if err != nil {
				if pages {
					return c.Redirect(http.StatusFound, LoginPath)
				}
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"message": "Authentication required",
				})
			}

			c.Set(string(UsernameKey), username)
			return next(c)
		}
	}
}

// GetUsername retrieves the admin from the request context
// Returns empty string if not set
func GetUsername(c echo.Context) string {
	username := c.Get(string(UsernameKey))
	if username == nil {
		return ""
	}
	return username.(string)
}

// Package auth owns the session artifact: a signed, tamper-evident token
// carrying the principal's identity and role names, plus the background
// refresh monitor that keeps a session alive. Permission decisions are never
// carried in the artifact; fine-grained checks always re-query the authority
// graph so that revocations take effect on the very next check.
package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"backend/pkg/apperror"
)

const (
	DefaultLifetime              = time.Hour
	DefaultExpiringSoonThreshold = 10 * time.Minute
)

// Claims is the identity assertion embedded in the session artifact. Role
// names are captured at issue time for coarse checks only; they are re-read
// from the database on every refresh.
type Claims struct {
	Username string   `json:"username"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserID parses the numeric principal id from the subject claim
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, apperror.Wrap(apperror.Unauthenticated, "invalid session subject", err)
	}
	return uint(id), nil
}

// Status is the introspection result for a session artifact. Absent, expired
// or tampered artifacts yield IsAuthenticated=false, never an error.
type Status struct {
	IsAuthenticated bool          `json:"is_authenticated"`
	Username        string        `json:"username,omitempty"`
	IssuedAt        *time.Time    `json:"issued_at,omitempty"`
	ExpiresAt       *time.Time    `json:"expires_at,omitempty"`
	TimeRemaining   time.Duration `json:"-"`
	IsExpiringSoon  bool          `json:"is_expiring_soon"`
}

// Config tunes session issuance and introspection
type Config struct {
	Secret                []byte
	Lifetime              time.Duration // how long an issued artifact lives
	ExpiringSoonThreshold time.Duration // remaining time below which a refresh is due
}

// TokenManager issues, validates and introspects session artifacts
type TokenManager struct {
	cfg Config
	now func() time.Time
}

// NewTokenManager constructs a TokenManager, applying the policy defaults
// (1 hour lifetime, 10 minute expiring-soon threshold) where unset
func NewTokenManager(cfg Config) *TokenManager {
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.ExpiringSoonThreshold <= 0 {
		cfg.ExpiringSoonThreshold = DefaultExpiringSoonThreshold
	}
	return &TokenManager{cfg: cfg, now: time.Now}
}

// Lifetime reports the configured session lifetime
func (m *TokenManager) Lifetime() time.Duration {
	return m.cfg.Lifetime
}

// Issue signs a fresh artifact for the principal with exp = now + lifetime
func (m *TokenManager) Issue(userID uint, username, name string, roles []string) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		Username: username,
		Name:     name,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.Lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.cfg.Secret)
	if err != nil {
		return "", nil, apperror.Wrap(apperror.Internal, "failed to sign session token", err)
	}
	return signed, claims, nil
}

// Parse validates the artifact's signature and expiry and returns its claims.
// Any absent, expired or tampered artifact maps to Unauthenticated.
func (m *TokenManager) Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperror.New(apperror.Unauthenticated, "no session token presented")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.cfg.Secret, nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil || !token.Valid {
		return nil, apperror.Wrap(apperror.Unauthenticated, "invalid or expired session token", err)
	}
	return claims, nil
}

// Status introspects the artifact without mutating it. A session whose
// remaining time is exactly zero counts as expired, not as expiring soon.
func (m *TokenManager) Status(tokenString string) Status {
	claims, err := m.Parse(tokenString)
	if err != nil {
		return Status{IsAuthenticated: false}
	}

	issuedAt := claims.IssuedAt.Time
	expiresAt := claims.ExpiresAt.Time
	remaining := expiresAt.Sub(m.now())
	if remaining <= 0 {
		return Status{IsAuthenticated: false}
	}

	return Status{
		IsAuthenticated: true,
		Username:        claims.Username,
		IssuedAt:        &issuedAt,
		ExpiresAt:       &expiresAt,
		TimeRemaining:   remaining,
		IsExpiringSoon:  remaining < m.cfg.ExpiringSoonThreshold,
	}
}

// Package token issues and validates the signed, time-bounded tokens used
// across the platform: session tokens for authenticated requests, and
// single-purpose email-confirmation and password-reset tokens. Tokens are
// stateless; validity is purely a function of signature and expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sellergrid/service-core-go/internal/identity/entity"
	"github.com/sellergrid/service-core-go/internal/result"
)

// Purpose identifies what a token was issued for. Validation rejects a token
// presented for any purpose other than the one it carries, so a reset token
// can never satisfy a confirmation check.
type Purpose string

const (
	PurposeSession       Purpose = "session"
	PurposeEmailConfirm  Purpose = "email_confirm"
	PurposePasswordReset Purpose = "password_reset"
)

const (
	emailConfirmTTL  = 24 * time.Hour
	passwordResetTTL = time.Hour
)

// Config holds the immutable signing parameters, loaded once at startup and
// shared read-only across all concurrent issue/validate calls.
type Config struct {
	Secret     []byte
	Issuer     string
	Audience   string
	SessionTTL time.Duration
}

// Claims is the claim schema shared by all three token purposes. Session
// tokens additionally carry email and role.
type Claims struct {
	Purpose string `json:"purpose"`
	Email   string `json:"email,omitempty"`
	Role    string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a single symmetric key.
type Service struct {
	cfg Config
	now func() time.Time
}

// NewService constructs a Service. SessionTTL defaults to 60 minutes when
// unset.
func NewService(cfg Config) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 60 * time.Minute
	}
	return &Service{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) ttl(p Purpose) time.Duration {
	switch p {
	case PurposeEmailConfirm:
		return emailConfirmTTL
	case PurposePasswordReset:
		return passwordResetTTL
	default:
		return s.cfg.SessionTTL
	}
}

// Issue creates a signed token for the given identity and purpose. The
// expiry is fixed per purpose: session tokens use the configured TTL,
// confirmation tokens 24 hours, reset tokens 1 hour.
func (s *Service) Issue(ident *entity.Identity, purpose Purpose) (string, error) {
	now := s.now()
	claims := Claims{
		Purpose: string(purpose),
		Email:   ident.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID,
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl(purpose))),
		},
	}
	if purpose == PurposeSession {
		claims.Role = string(ident.Role)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.cfg.Secret)
}

// Validate verifies signature, issuer, audience, expiry and purpose, and
// returns the subject identity id. Expiry is checked against UTC wall-clock
// time with zero leeway.
func (s *Service) Validate(raw string, expected Purpose) result.Result[string] {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(0),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return result.Failure[string](result.KindTokenMalformed, "token is malformed")
		case errors.Is(err, jwt.ErrTokenExpired):
			return result.Failure[string](result.KindTokenExpired, "token has expired")
		default:
			return result.Failure[string](result.KindTokenInvalid, "token is invalid")
		}
	}
	if claims.Purpose != string(expected) {
		return result.Failure[string](result.KindTokenInvalid, "token is invalid")
	}
	if claims.Subject == "" {
		return result.Failure[string](result.KindTokenInvalid, "token is invalid")
	}
	return result.Success(claims.Subject)
}

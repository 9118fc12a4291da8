package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sellergrid/service-core-go/internal/identity/entity"
	identityrepo "github.com/sellergrid/service-core-go/internal/identity/repo"
	"github.com/sellergrid/service-core-go/internal/result"
	"github.com/sellergrid/service-core-go/internal/token"
	"github.com/sellergrid/service-core-go/pkg/utilities"
)

// Store is the persistence boundary for identities. Lookups return
// (nil, nil) when no row matches; errors are infrastructure failures.
type Store interface {
	GetByID(ctx context.Context, id string) (*entity.Identity, error)
	FindByEmail(ctx context.Context, email string) (*entity.Identity, error)
	GetAll(ctx context.Context) ([]*entity.Identity, error)
	Add(ctx context.Context, ident *entity.Identity) error
	Update(ctx context.Context, ident *entity.Identity) error
	Delete(ctx context.Context, id string) error
}

// PasswordHasher defines minimal hashing interface (abstract so we can swap
// to argon2 later).
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(digest, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(digest, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(pw)) == nil
}

// Sender delivers notification email. Delivery is best-effort: the service
// logs failures but never rolls back state because a message did not go out.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// Tokens is the token issuance/validation boundary consumed by the service.
type Tokens interface {
	Issue(ident *entity.Identity, purpose token.Purpose) (string, error)
	Validate(raw string, expected token.Purpose) result.Result[string]
}

const (
	msgDuplicateEmail     = "user with this email already exists"
	msgInvalidCredentials = "invalid email or password"
	msgUserNotFound       = "user not found"
	msgInternal           = "internal error"
)

// Service orchestrates registration, authentication, email confirmation and
// password reset, plus administrative CRUD over identities. Every operation
// returns a Result so the boundary can branch without error unwrapping.
type Service struct {
	store  Store
	hasher PasswordHasher
	sender Sender
	tokens Tokens
	logger *zap.SugaredLogger

	// BaseURL is the public base used to build confirmation and reset links.
	BaseURL string
}

func NewService(store Store, hasher PasswordHasher, sender Sender, tokens Tokens, baseURL string, logger *zap.SugaredLogger) *Service {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{store: store, hasher: hasher, sender: sender, tokens: tokens, BaseURL: baseURL, logger: logger}
}

// normalizeEmail fixes the case policy at the service edge: addresses are
// compared and stored lowercased.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unconfirmed account and emails a confirmation link.
// Persistence completes before token issuance; a failed email dispatch is
// logged and does not roll back the account.
func (s *Service) Register(ctx context.Context, name, email string, role entity.Role, password string) result.Result[bool] {
	email = normalizeEmail(email)

	existing, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return storeFailure[bool](s.logger, "register: find by email", err)
	}
	if existing != nil {
		return result.Failure[bool](result.KindDuplicateEmail, msgDuplicateEmail)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Errorw("hash password", "err", err)
		return result.Failure[bool](result.KindStoreUnavailable, msgInternal)
	}

	ident := &entity.Identity{
		ID:             utilities.NewKSUID(),
		Name:           strings.TrimSpace(name),
		Email:          email,
		Role:           role,
		PasswordDigest: digest,
		EmailConfirmed: false,
	}
	if err := s.store.Add(ctx, ident); err != nil {
		// unique constraint is the defense-in-depth behind the lookup above
		if errors.Is(err, identityrepo.ErrDuplicateEmail) {
			return result.Failure[bool](result.KindDuplicateEmail, msgDuplicateEmail)
		}
		return storeFailure[bool](s.logger, "register: add identity", err)
	}

	s.sendLink(ctx, ident, token.PurposeEmailConfirm,
		"Confirm your account", "confirm your account", "/auth/confirm-email")

	return result.Success(true)
}

// Authenticate verifies credentials and issues a session token. A missing
// account and a wrong password produce the same failure so callers cannot
// probe for account existence.
func (s *Service) Authenticate(ctx context.Context, email, password string) result.Result[string] {
	email = normalizeEmail(email)

	ident, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return storeFailure[string](s.logger, "authenticate: find by email", err)
	}
	if ident == nil || !s.hasher.Verify(ident.PasswordDigest, password) {
		return result.Failure[string](result.KindInvalidCredentials, msgInvalidCredentials)
	}

	session, err := s.tokens.Issue(ident, token.PurposeSession)
	if err != nil {
		s.logger.Errorw("issue session token", "err", err)
		return result.Failure[string](result.KindStoreUnavailable, msgInternal)
	}
	return result.Success(session)
}

// ConfirmEmail validates an email-confirmation token and marks the account
// confirmed. Confirming an already-confirmed account is harmless.
func (s *Service) ConfirmEmail(ctx context.Context, raw string) result.Result[bool] {
	validated := s.tokens.Validate(raw, token.PurposeEmailConfirm)
	if !validated.OK() {
		return result.Failure[bool](validated.Kind(), validated.Message())
	}

	ident, err := s.store.GetByID(ctx, validated.Value())
	if err != nil {
		return storeFailure[bool](s.logger, "confirm email: get identity", err)
	}
	if ident == nil {
		return result.Failure[bool](result.KindUserNotFound, msgUserNotFound)
	}

	ident.EmailConfirmed = true
	if err := s.store.Update(ctx, ident); err != nil {
		return storeFailure[bool](s.logger, "confirm email: update identity", err)
	}
	return result.Success(true)
}

// ForgotPassword issues a password-reset token and emails a reset link.
// Account existence is never revealed: an unknown email yields the same
// successful outcome with nothing sent.
func (s *Service) ForgotPassword(ctx context.Context, email string) result.Result[bool] {
	email = normalizeEmail(email)

	ident, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return storeFailure[bool](s.logger, "forgot password: find by email", err)
	}
	if ident == nil {
		s.logger.Debugw("password reset requested for unknown email")
		return result.Success(true)
	}

	s.sendLink(ctx, ident, token.PurposePasswordReset,
		"Password Reset", "reset your password", "/auth/reset-password")

	return result.Success(true)
}

// ResetPassword validates a password-reset token and stores a new digest.
func (s *Service) ResetPassword(ctx context.Context, raw, newPassword string) result.Result[bool] {
	validated := s.tokens.Validate(raw, token.PurposePasswordReset)
	if !validated.OK() {
		return result.Failure[bool](validated.Kind(), validated.Message())
	}

	ident, err := s.store.GetByID(ctx, validated.Value())
	if err != nil {
		return storeFailure[bool](s.logger, "reset password: get identity", err)
	}
	if ident == nil {
		return result.Failure[bool](result.KindUserNotFound, msgUserNotFound)
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.Errorw("hash password", "err", err)
		return result.Failure[bool](result.KindStoreUnavailable, msgInternal)
	}
	ident.PasswordDigest = digest
	if err := s.store.Update(ctx, ident); err != nil {
		return storeFailure[bool](s.logger, "reset password: update identity", err)
	}
	return result.Success(true)
}

// CreateUser creates an account without the confirmation flow
// (administrative operation). Returns the new identity id.
func (s *Service) CreateUser(ctx context.Context, name, email string, role entity.Role, password string) result.Result[string] {
	email = normalizeEmail(email)

	existing, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return storeFailure[string](s.logger, "create user: find by email", err)
	}
	if existing != nil {
		return result.Failure[string](result.KindDuplicateEmail, msgDuplicateEmail)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Errorw("hash password", "err", err)
		return result.Failure[string](result.KindStoreUnavailable, msgInternal)
	}
	ident := &entity.Identity{
		ID:             utilities.NewKSUID(),
		Name:           strings.TrimSpace(name),
		Email:          email,
		Role:           role,
		PasswordDigest: digest,
		EmailConfirmed: false,
	}
	if err := s.store.Add(ctx, ident); err != nil {
		if errors.Is(err, identityrepo.ErrDuplicateEmail) {
			return result.Failure[string](result.KindDuplicateEmail, msgDuplicateEmail)
		}
		return storeFailure[string](s.logger, "create user: add identity", err)
	}
	return result.Success(ident.ID)
}

// UpdateUser replaces name, email and role of an existing identity.
// Ownership enforcement for self-service belongs to the boundary's role
// check; this operation is administrative.
func (s *Service) UpdateUser(ctx context.Context, id, name, email string, role entity.Role) result.Result[bool] {
	ident, err := s.store.GetByID(ctx, id)
	if err != nil {
		return storeFailure[bool](s.logger, "update user: get identity", err)
	}
	if ident == nil {
		return result.Failure[bool](result.KindUserNotFound, msgUserNotFound)
	}

	ident.Name = strings.TrimSpace(name)
	ident.Email = normalizeEmail(email)
	ident.Role = role
	if err := s.store.Update(ctx, ident); err != nil {
		if errors.Is(err, identityrepo.ErrDuplicateEmail) {
			return result.Failure[bool](result.KindDuplicateEmail, msgDuplicateEmail)
		}
		return storeFailure[bool](s.logger, "update user: update identity", err)
	}
	return result.Success(true)
}

// DeleteUser removes an identity.
func (s *Service) DeleteUser(ctx context.Context, id string) result.Result[bool] {
	ident, err := s.store.GetByID(ctx, id)
	if err != nil {
		return storeFailure[bool](s.logger, "delete user: get identity", err)
	}
	if ident == nil {
		return result.Failure[bool](result.KindUserNotFound, msgUserNotFound)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return storeFailure[bool](s.logger, "delete user: delete identity", err)
	}
	return result.Success(true)
}

// GetUserByID fetches one identity.
func (s *Service) GetUserByID(ctx context.Context, id string) result.Result[*entity.Identity] {
	ident, err := s.store.GetByID(ctx, id)
	if err != nil {
		return storeFailure[*entity.Identity](s.logger, "get user: get identity", err)
	}
	if ident == nil {
		return result.Failure[*entity.Identity](result.KindUserNotFound, msgUserNotFound)
	}
	return result.Success(ident)
}

// GetAllUsers lists every identity.
func (s *Service) GetAllUsers(ctx context.Context) result.Result[[]*entity.Identity] {
	idents, err := s.store.GetAll(ctx)
	if err != nil {
		return storeFailure[[]*entity.Identity](s.logger, "get all users: list identities", err)
	}
	return result.Success(idents)
}

// sendLink issues a single-purpose token, builds the action link and emails
// it. Best-effort: failures are logged, never returned.
func (s *Service) sendLink(ctx context.Context, ident *entity.Identity, purpose token.Purpose, subject, action, path string) {
	tok, err := s.tokens.Issue(ident, purpose)
	if err != nil {
		s.logger.Warnw("issue token", "purpose", purpose, "err", err)
		return
	}
	link := fmt.Sprintf("%s%s?token=%s", s.BaseURL, path, url.QueryEscape(tok))
	body := fmt.Sprintf(`Please %s by clicking <a href=%q>here</a>.`, action, link)
	if err := s.sender.Send(ctx, ident.Email, subject, body); err != nil {
		s.logger.Warnw("send notification", "purpose", purpose, "err", err)
	}
}

// storeFailure logs an infrastructure error and converts it into the
// uniform internal failure without leaking detail to the caller.
func storeFailure[T any](logger *zap.SugaredLogger, op string, err error) result.Result[T] {
	logger.Errorw(op, "err", err)
	return result.Failure[T](result.KindStoreUnavailable, msgInternal)
}

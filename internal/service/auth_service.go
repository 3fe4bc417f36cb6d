package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blogverse/blogverse/internal/config"
	"github.com/blogverse/blogverse/internal/domain"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/repository"
	"github.com/blogverse/blogverse/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
)

// ValidationError carries a user-facing message for a rejected input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationError(msg string) error { return &ValidationError{Msg: msg} }

type SignupRequest struct {
	Username string
	Email    string
	Password string
}

// AuthService owns the credential lifecycle: signup, email verification,
// login, and password reset.
type AuthService struct {
	cfg    *config.Config
	users  repository.UserRepository
	tokens *CredentialTokenStore
	atomic repository.Atomic
	jwt    *security.JWTManager
	emails EmailNotifier
	logger *slog.Logger
	now    func() time.Time
}

func NewAuthService(
	cfg *config.Config,
	users repository.UserRepository,
	tokens *CredentialTokenStore,
	atomic repository.Atomic,
	jwt *security.JWTManager,
	emails EmailNotifier,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		atomic: atomic,
		jwt:    jwt,
		emails: emails,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Signup creates an unverified account and mails a verification link.
// The email delivery is best effort: a failed send is logged, never
// surfaced, so the account still exists and the user can ask for a resend.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.users.FindByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(user); err != nil {
		// A concurrent signup can slip past the pre-checks; the unique
		// indexes are the real guard.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			observability.RecordAuthFlowEvent(ctx, "signup", "conflict")
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.issueAndSendVerification(ctx, user)
	observability.RecordAuthFlowEvent(ctx, "signup", "success")
	return user, nil
}

// VerifyEmail redeems a verification token. Consuming the token and
// flipping the verified flag commit in one transaction, so a crash between
// the two cannot strand a burned token.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) (*domain.User, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrInvalidToken
	}

	now := s.now()
	var userID uuid.UUID
	err := s.atomic.Transact(ctx, func(tx repository.Repos) error {
		token, err := tx.CredentialTokens.FindLiveByToken(rawToken, domain.TokenTypeEmailVerification, now)
		if err != nil {
			return err
		}
		if err := tx.CredentialTokens.Consume(token.ID, now); err != nil {
			return err
		}
		userID = token.UserID
		return tx.Users.MarkEmailVerified(userID, now)
	})
	if err != nil {
		if errors.Is(err, repository.ErrCredentialTokenNotFound) {
			observability.RecordAuthFlowEvent(ctx, "verify_email", "rejected")
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	observability.RecordCredentialTokenEvent(ctx, string(domain.TokenTypeEmailVerification), "consumed")
	observability.RecordAuthFlowEvent(ctx, "verify_email", "success")

	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if sendErr := s.emails.SendWelcome(ctx, user.Email, user.Username); sendErr != nil {
		s.logger.WarnContext(ctx, "welcome email delivery failed", "user_id", user.ID, "error", sendErr)
	}
	return user, nil
}

// ResendVerification behaves identically whether or not the address maps
// to an account, and whether or not that account is already verified. Only
// an unverified account actually gets a fresh token.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthFlowEvent(ctx, "resend_verification", "unknown_email")
			return nil
		}
		return err
	}
	if user.EmailVerified {
		observability.RecordAuthFlowEvent(ctx, "resend_verification", "already_verified")
		return nil
	}

	s.issueAndSendVerification(ctx, user)
	observability.RecordAuthFlowEvent(ctx, "resend_verification", "success")
	return nil
}

// Login exchanges credentials for a bearer token. A missing account and a
// wrong password are indistinguishable; an unverified email is not.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = normalizeEmail(email)
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthFlowEvent(ctx, "login", "invalid_credentials")
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !security.VerifyPassword(user.PasswordHash, password) {
		observability.RecordAuthFlowEvent(ctx, "login", "invalid_credentials")
		return "", nil, ErrInvalidCredentials
	}
	if !user.EmailVerified {
		observability.RecordAuthFlowEvent(ctx, "login", "unverified")
		return "", nil, ErrEmailNotVerified
	}

	token, err := s.jwt.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}
	observability.RecordAuthFlowEvent(ctx, "login", "success")
	return token, user, nil
}

// ForgotPassword mints a reset token when the address maps to an account.
// The caller sees the same outcome either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return nil
	}
	user, err := s.users.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthFlowEvent(ctx, "forgot_password", "unknown_email")
			return nil
		}
		return err
	}

	token, err := s.tokens.Issue(ctx, user.ID, domain.TokenTypePasswordReset, s.cfg.PasswordResetTokenTTL)
	if err != nil {
		return err
	}
	if sendErr := s.emails.SendPasswordReset(ctx, PasswordResetNotification{
		Email:     user.Email,
		Username:  user.Username,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}); sendErr != nil {
		s.logger.WarnContext(ctx, "password reset email delivery failed", "user_id", user.ID, "error", sendErr)
	}
	observability.RecordAuthFlowEvent(ctx, "forgot_password", "success")
	return nil
}

// ResetPassword redeems a reset token and installs the new password hash
// in the same transaction.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return ErrInvalidToken
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	now := s.now()
	err = s.atomic.Transact(ctx, func(tx repository.Repos) error {
		token, err := tx.CredentialTokens.FindLiveByToken(rawToken, domain.TokenTypePasswordReset, now)
		if err != nil {
			return err
		}
		if err := tx.CredentialTokens.Consume(token.ID, now); err != nil {
			return err
		}
		return tx.Users.UpdatePasswordHash(token.UserID, hash, now)
	})
	if err != nil {
		if errors.Is(err, repository.ErrCredentialTokenNotFound) {
			observability.RecordAuthFlowEvent(ctx, "reset_password", "rejected")
			return ErrInvalidToken
		}
		return err
	}
	observability.RecordCredentialTokenEvent(ctx, string(domain.TokenTypePasswordReset), "consumed")
	observability.RecordAuthFlowEvent(ctx, "reset_password", "success")
	return nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.FindByID(id)
}

func (s *AuthService) issueAndSendVerification(ctx context.Context, user *domain.User) {
	token, err := s.tokens.Issue(ctx, user.ID, domain.TokenTypeEmailVerification, s.cfg.EmailVerifyTokenTTL)
	if err != nil {
		s.logger.ErrorContext(ctx, "verification token issue failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.emails.SendVerification(ctx, VerificationNotification{
		Email:     user.Email,
		Username:  user.Username,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	}); err != nil {
		s.logger.WarnContext(ctx, "verification email delivery failed", "user_id", user.ID, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 50 {
		return validationError("username must be between 3 and 50 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return validationError("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationError(fmt.Sprintf("%q is not a valid email address", email))
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return validationError("password must be at least 8 characters")
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blogverse/blogverse/internal/config"
	"github.com/blogverse/blogverse/internal/database"
	"github.com/blogverse/blogverse/internal/domain"
	"github.com/blogverse/blogverse/internal/repository"
	"github.com/blogverse/blogverse/internal/security"
)

func newServiceDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentEmail struct {
	kind  string // "verification", "password_reset", "welcome"
	to    string
	token string
}

// recordingNotifier captures outbound mail and can be told to fail.
type recordingNotifier struct {
	sent    []sentEmail
	sendErr error
}

func (n *recordingNotifier) SendVerification(ctx context.Context, v VerificationNotification) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, sentEmail{kind: "verification", to: v.Email, token: v.Token})
	return nil
}

func (n *recordingNotifier) SendPasswordReset(ctx context.Context, v PasswordResetNotification) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, sentEmail{kind: "password_reset", to: v.Email, token: v.Token})
	return nil
}

func (n *recordingNotifier) SendWelcome(ctx context.Context, email, username string) error {
	if n.sendErr != nil {
		return n.sendErr
	}
	n.sent = append(n.sent, sentEmail{kind: "welcome", to: email})
	return nil
}

func (n *recordingNotifier) lastOfKind(kind string) (sentEmail, bool) {
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].kind == kind {
			return n.sent[i], true
		}
	}
	return sentEmail{}, false
}

type authFixture struct {
	t      *testing.T
	db     *gorm.DB
	cfg    *config.Config
	users  repository.UserRepository
	tokens repository.CredentialTokenRepository
	store  *CredentialTokenStore
	jwt    *security.JWTManager
	emails *recordingNotifier
	auth   *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := newServiceDBForTest(t)
	cfg := &config.Config{
		JWTTTL:                time.Hour,
		EmailVerifyTokenTTL:   24 * time.Hour,
		PasswordResetTokenTTL: time.Hour,
	}
	users := repository.NewUserRepository(db)
	tokens := repository.NewCredentialTokenRepository(db)
	store := NewCredentialTokenStore(tokens, discardLogger())
	jwtManager := security.NewJWTManager("blogverse", "blogverse-api", "test-secret-key-0123456789", cfg.JWTTTL)
	emails := &recordingNotifier{}
	auth := NewAuthService(cfg, users, store, repository.NewAtomic(db), jwtManager, emails, discardLogger())
	return &authFixture{
		t:      t,
		db:     db,
		cfg:    cfg,
		users:  users,
		tokens: tokens,
		store:  store,
		jwt:    jwtManager,
		emails: emails,
		auth:   auth,
	}
}

// freezeAt pins both the service and store clocks.
func (fx *authFixture) freezeAt(at time.Time) {
	fx.auth.now = func() time.Time { return at }
	fx.store.now = func() time.Time { return at }
}

func (fx *authFixture) signup(username, email, password string) *domain.User {
	fx.t.Helper()
	user, err := fx.auth.Signup(context.Background(), SignupRequest{Username: username, Email: email, Password: password})
	if err != nil {
		fx.t.Fatalf("signup %s: %v", email, err)
	}
	return user
}

func (fx *authFixture) signupVerified(username, email, password string) *domain.User {
	fx.t.Helper()
	fx.signup(username, email, password)
	mail, ok := fx.emails.lastOfKind("verification")
	if !ok {
		fx.t.Fatal("expected verification email after signup")
	}
	verified, err := fx.auth.VerifyEmail(context.Background(), mail.token)
	if err != nil {
		fx.t.Fatalf("verify %s: %v", email, err)
	}
	return verified
}

func isValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestAuthServiceSignupMatrix(t *testing.T) {
	t.Run("creates unverified account and mails a token", func(t *testing.T) {
		fx := newAuthFixture(t)

		user := fx.signup("alice", "alice@example.com", "correct-horse")
		if user.EmailVerified {
			t.Fatal("expected new account to be unverified")
		}
		if user.PasswordHash == "correct-horse" || !strings.HasPrefix(user.PasswordHash, "$argon2id$") {
			t.Fatalf("expected argon2id hash, got %q", user.PasswordHash)
		}

		mail, ok := fx.emails.lastOfKind("verification")
		if !ok {
			t.Fatal("expected verification email")
		}
		if mail.to != "alice@example.com" {
			t.Fatalf("unexpected recipient: %s", mail.to)
		}
		if len(mail.token) != 48 {
			t.Fatalf("expected 48-char token, got %d", len(mail.token))
		}
	})

	t.Run("normalizes email casing", func(t *testing.T) {
		fx := newAuthFixture(t)
		user := fx.signup("bob", "  Bob@Example.COM ", "correct-horse")
		if user.Email != "bob@example.com" {
			t.Fatalf("expected normalized email, got %q", user.Email)
		}
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		fx := newAuthFixture(t)
		cases := []struct {
			name string
			req  SignupRequest
		}{
			{"short username", SignupRequest{Username: "ab", Email: "a@example.com", Password: "longenough"}},
			{"long username", SignupRequest{Username: strings.Repeat("x", 51), Email: "a@example.com", Password: "longenough"}},
			{"bad email", SignupRequest{Username: "carol", Email: "not-an-email", Password: "longenough"}},
			{"empty email", SignupRequest{Username: "carol", Email: "", Password: "longenough"}},
			{"short password", SignupRequest{Username: "carol", Email: "carol@example.com", Password: "short"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if _, err := fx.auth.Signup(context.Background(), tc.req); !isValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
			})
		}
	})

	t.Run("duplicate email and username", func(t *testing.T) {
		fx := newAuthFixture(t)
		fx.signup("dave", "dave@example.com", "correct-horse")

		_, err := fx.auth.Signup(context.Background(), SignupRequest{Username: "other", Email: "dave@example.com", Password: "correct-horse"})
		if !errors.Is(err, ErrEmailTaken) {
			t.Fatalf("expected ErrEmailTaken, got %v", err)
		}
		_, err = fx.auth.Signup(context.Background(), SignupRequest{Username: "dave", Email: "dave2@example.com", Password: "correct-horse"})
		if !errors.Is(err, ErrUsernameTaken) {
			t.Fatalf("expected ErrUsernameTaken, got %v", err)
		}
	})

	t.Run("delivery failure does not fail signup", func(t *testing.T) {
		fx := newAuthFixture(t)
		fx.emails.sendErr = errors.New("smtp down")

		user := fx.signup("erin", "erin@example.com", "correct-horse")
		if user.ID.String() == "" {
			t.Fatal("expected account despite failed delivery")
		}
		// The token was still minted; a later resend can deliver it.
		fx.emails.sendErr = nil
		if err := fx.auth.ResendVerification(context.Background(), "erin@example.com"); err != nil {
			t.Fatalf("resend: %v", err)
		}
		if _, ok := fx.emails.lastOfKind("verification"); !ok {
			t.Fatal("expected verification email after resend")
		}
	})
}

func TestAuthServiceVerifyEmailMatrix(t *testing.T) {
	t.Run("valid token verifies and burns", func(t *testing.T) {
		fx := newAuthFixture(t)
		fx.signup("frank", "frank@example.com", "correct-horse")
		mail, _ := fx.emails.lastOfKind("verification")

		user, err := fx.auth.VerifyEmail(context.Background(), mail.token)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if !user.EmailVerified {
			t.Fatal("expected verified account")
		}
		if _, ok := fx.emails.lastOfKind("welcome"); !ok {
			t.Fatal("expected welcome email")
		}

		// Single use: the same token never works twice.
		if _, err := fx.auth.VerifyEmail(context.Background(), mail.token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken on reuse, got %v", err)
		}
	})

	t.Run("garbage and empty tokens", func(t *testing.T) {
		fx := newAuthFixture(t)
		for _, raw := range []string{"", "   ", "definitely-not-a-real-token"} {
			if _, err := fx.auth.VerifyEmail(context.Background(), raw); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("token %q: expected ErrInvalidToken, got %v", raw, err)
			}
		}
	})

	t.Run("expired token rejected", func(t *testing.T) {
		fx := newAuthFixture(t)
		issuedAt := time.Now().UTC()
		fx.freezeAt(issuedAt)
		fx.signup("grace", "grace@example.com", "correct-horse")
		mail, _ := fx.emails.lastOfKind("verification")

		fx.freezeAt(issuedAt.Add(24*time.Hour + time.Minute))
		if _, err := fx.auth.VerifyEmail(context.Background(), mail.token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
		}
	})

	t.Run("password reset token cannot verify email", func(t *testing.T) {
		fx := newAuthFixture(t)
		fx.signupVerified("heidi", "heidi@example.com", "correct-horse")
		if err := fx.auth.ForgotPassword(context.Background(), "heidi@example.com"); err != nil {
			t.Fatalf("forgot: %v", err)
		}
		mail, _ := fx.emails.lastOfKind("password_reset")
		if _, err := fx.auth.VerifyEmail(context.Background(), mail.token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected cross-type rejection, got %v", err)
		}
	})
}

func TestAuthServiceResendVerificationMatrix(t *testing.T) {
	t.Run("unknown email is silently accepted", func(t *testing.T) {
		fx := newAuthFixture(t)
		if err := fx.auth.ResendVerification(context.Background(), "ghost@example.com"); err != nil {
			t.Fatalf("resend: %v", err)
		}
		if len(fx.emails.sent) != 0 {
			t.Fatalf("expected no mail for unknown email, got %d", len(fx.emails.sent))
		}
	})

	t.Run("verified account gets nothing", func(t *testing.T) {
		fx := newAuthFixture(t)
		fx.signupVerified("ivan", "ivan@example.com", "correct-horse")
		before := len(fx.emails.sent)

		if err := fx.auth.ResendVerification(context.Background(), "ivan@example.com"); err != nil {
			t.Fatalf("resend: %v", err)
		}
		if len(fx.emails.sent) != before {
			t.Fatal("expected no mail for already-verified account")
		}
	})

	t.Run("resend supersedes the previous token", func(t *testing.T) {
		fx := newAuthFixture(t)
		fx.signup("judy", "judy@example.com", "correct-horse")
		first, _ := fx.emails.lastOfKind("verification")

		if err := fx.auth.ResendVerification(context.Background(), "judy@example.com"); err != nil {
			t.Fatalf("resend: %v", err)
		}
		second, _ := fx.emails.lastOfKind("verification")
		if first.token == second.token {
			t.Fatal("expected a fresh token on resend")
		}

		// Only the newest token is live.
		if _, err := fx.auth.VerifyEmail(context.Background(), first.token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected superseded token rejected, got %v", err)
		}
		if _, err := fx.auth.VerifyEmail(context.Background(), second.token); err != nil {
			t.Fatalf("expected newest token accepted, got %v", err)
		}
	})
}

func TestAuthServiceLoginMatrix(t *testing.T) {
	t.Run("verified account logs in and gets a bearer token", func(t *testing.T) {
		fx := newAuthFixture(t)
		user := fx.signupVerified("karl", "karl@example.com", "correct-horse")

		token, got, err := fx.auth.Login(context.Background(), "karl@example.com", "correct-horse")
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		if got.ID != user.ID {
			t.Fatalf("user mismatch: got %s want %s", got.ID, user.ID)
		}
		claims, err := fx.jwt.Validate(token)
		if err != nil {
			t.Fatalf("validate issued token: %v", err)
		}
		subject, err := claims.UserID()
		if err != nil || subject != user.ID {
			t.Fatalf("subject mismatch: got %v %v want %s", subject, err, user.ID)
		}
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		fx := newAuthFixture(t)
		fx.signupVerified("lena", "lena@example.com", "correct-horse")

		_, _, errUnknown := fx.auth.Login(context.Background(), "nobody@example.com", "correct-horse")
		_, _, errWrong := fx.auth.Login(context.Background(), "lena@example.com", "wrong-password")
		if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrong, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", errUnknown, errWrong)
		}
		if errUnknown.Error() != errWrong.Error() {
			t.Fatal("expected identical error for unknown email and wrong password")
		}
	})

	t.Run("unverified account is told to verify", func(t *testing.T) {
		fx := newAuthFixture(t)
		fx.signup("mike", "mike@example.com", "correct-horse")

		_, _, err := fx.auth.Login(context.Background(), "mike@example.com", "correct-horse")
		if !errors.Is(err, ErrEmailNotVerified) {
			t.Fatalf("expected ErrEmailNotVerified, got %v", err)
		}
	})
}

func TestAuthServicePasswordResetMatrix(t *testing.T) {
	t.Run("full reset flow", func(t *testing.T) {
		fx := newAuthFixture(t)
		fx.signupVerified("nina", "nina@example.com", "old-password-1")

		if err := fx.auth.ForgotPassword(context.Background(), "nina@example.com"); err != nil {
			t.Fatalf("forgot: %v", err)
		}
		mail, ok := fx.emails.lastOfKind("password_reset")
		if !ok {
			t.Fatal("expected reset email")
		}

		if err := fx.auth.ResetPassword(context.Background(), mail.token, "new-password-1"); err != nil {
			t.Fatalf("reset: %v", err)
		}

		if _, _, err := fx.auth.Login(context.Background(), "nina@example.com", "old-password-1"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected old password dead, got %v", err)
		}
		if _, _, err := fx.auth.Login(context.Background(), "nina@example.com", "new-password-1"); err != nil {
			t.Fatalf("expected new password to work, got %v", err)
		}

		// The token burned with the reset.
		if err := fx.auth.ResetPassword(context.Background(), mail.token, "another-password"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken on reuse, got %v", err)
		}
	})

	t.Run("unknown email is silently accepted", func(t *testing.T) {
		fx := newAuthFixture(t)
		if err := fx.auth.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
			t.Fatalf("forgot: %v", err)
		}
		if len(fx.emails.sent) != 0 {
			t.Fatal("expected no mail for unknown email")
		}
	})

	t.Run("weak replacement password leaves token live", func(t *testing.T) {
		fx := newAuthFixture(t)
		fx.signupVerified("olga", "olga@example.com", "old-password-1")
		if err := fx.auth.ForgotPassword(context.Background(), "olga@example.com"); err != nil {
			t.Fatalf("forgot: %v", err)
		}
		mail, _ := fx.emails.lastOfKind("password_reset")

		if err := fx.auth.ResetPassword(context.Background(), mail.token, "short"); !isValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		// Validation failed before the token was touched.
		if err := fx.auth.ResetPassword(context.Background(), mail.token, "new-password-1"); err != nil {
			t.Fatalf("expected token still usable, got %v", err)
		}
	})

	t.Run("expired reset token rejected", func(t *testing.T) {
		fx := newAuthFixture(t)
		issuedAt := time.Now().UTC()
		fx.freezeAt(issuedAt)
		fx.signupVerified("pete", "pete@example.com", "old-password-1")
		if err := fx.auth.ForgotPassword(context.Background(), "pete@example.com"); err != nil {
			t.Fatalf("forgot: %v", err)
		}
		mail, _ := fx.emails.lastOfKind("password_reset")

		fx.freezeAt(issuedAt.Add(time.Hour + time.Minute))
		if err := fx.auth.ResetPassword(context.Background(), mail.token, "new-password-1"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
		}
	})

	t.Run("second forgot supersedes the first token", func(t *testing.T) {
		fx := newAuthFixture(t)
		fx.signupVerified("rosa", "rosa@example.com", "old-password-1")

		if err := fx.auth.ForgotPassword(context.Background(), "rosa@example.com"); err != nil {
			t.Fatalf("forgot: %v", err)
		}
		first, _ := fx.emails.lastOfKind("password_reset")
		if err := fx.auth.ForgotPassword(context.Background(), "rosa@example.com"); err != nil {
			t.Fatalf("forgot: %v", err)
		}
		second, _ := fx.emails.lastOfKind("password_reset")

		if err := fx.auth.ResetPassword(context.Background(), first.token, "new-password-1"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected superseded token rejected, got %v", err)
		}
		if err := fx.auth.ResetPassword(context.Background(), second.token, "new-password-1"); err != nil {
			t.Fatalf("expected newest token accepted, got %v", err)
		}
	})
}

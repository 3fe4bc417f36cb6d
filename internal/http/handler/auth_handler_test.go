package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestAuthEndpointsFullFlow(t *testing.T) {
	app := newTestApp(t)
	email := app.signup("alice")

	t.Run("duplicate signup conflicts", func(t *testing.T) {
		rec, _ := app.do(http.MethodPost, "/api/auth/sign-up", "", map[string]string{
			"username": "alice2",
			"email":    email,
			"password": "password123",
		})
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("login before verification is forbidden", func(t *testing.T) {
		rec, env := app.do(http.MethodPost, "/api/auth/sign-in", "", map[string]string{
			"email":    email,
			"password": "password123",
		})
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
		if env.Message != "Please verify your email before logging in" {
			t.Fatalf("message = %q", env.Message)
		}
	})

	mail, ok := app.emails.lastOfKind("verification")
	if !ok {
		t.Fatal("verification email not captured")
	}

	t.Run("verify email", func(t *testing.T) {
		rec, env := app.do(http.MethodPost, "/api/auth/verify-email", "", map[string]string{"token": mail.Token})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
		}
		if env.Message != "Email verified successfully" {
			t.Fatalf("message = %q", env.Message)
		}
	})

	t.Run("verification token is single use", func(t *testing.T) {
		rec, env := app.do(http.MethodPost, "/api/auth/verify-email", "", map[string]string{"token": mail.Token})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if env.Message != "Invalid or expired token" {
			t.Fatalf("message = %q", env.Message)
		}
	})

	var bearer string
	t.Run("login succeeds after verification", func(t *testing.T) {
		rec, env := app.do(http.MethodPost, "/api/auth/sign-in", "", map[string]string{
			"email":    email,
			"password": "password123",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
		}
		var data struct {
			Token string `json:"token"`
			User  struct {
				Email string `json:"email"`
			} `json:"user"`
		}
		jsonPath(t, env.Data, &data)
		if data.Token == "" || data.User.Email != email {
			t.Fatalf("unexpected login payload: %s", env.Data)
		}
		bearer = data.Token
	})

	t.Run("me returns the public user", func(t *testing.T) {
		rec, env := app.do(http.MethodGet, "/api/auth/me", bearer, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var data struct {
			Username     string          `json:"username"`
			PasswordHash json.RawMessage `json:"password_hash"`
		}
		jsonPath(t, env.Data, &data)
		if data.Username != "alice" {
			t.Fatalf("username = %q", data.Username)
		}
		if data.PasswordHash != nil {
			t.Fatal("password hash must not leak")
		}
	})

	t.Run("me without token is unauthorized", func(t *testing.T) {
		rec, _ := app.do(http.MethodGet, "/api/auth/me", "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestAuthLoginDoesNotDiscloseAccounts(t *testing.T) {
	app := newTestApp(t)
	app.bearerFor("bob")

	unknown, env1 := app.do(http.MethodPost, "/api/auth/sign-in", "", map[string]string{
		"email":    "nobody@example.com",
		"password": "password123",
	})
	wrongPassword, env2 := app.do(http.MethodPost, "/api/auth/sign-in", "", map[string]string{
		"email":    "bob@example.com",
		"password": "wrong-password",
	})

	if unknown.Code != http.StatusUnauthorized || wrongPassword.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d, want 401 for both", unknown.Code, wrongPassword.Code)
	}
	if env1.Message != env2.Message || env1.Message != "Invalid email or password" {
		t.Fatalf("messages differ: %q vs %q", env1.Message, env2.Message)
	}
}

func TestAuthGenericOutcomesForProbes(t *testing.T) {
	app := newTestApp(t)

	t.Run("resend for unknown address looks the same", func(t *testing.T) {
		rec, env := app.do(http.MethodPost, "/api/auth/resend-verification", "", map[string]string{
			"email": "ghost@example.com",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if env.Message != "If an account exists, a verification email has been sent." {
			t.Fatalf("message = %q", env.Message)
		}
	})

	t.Run("forgot for unknown address looks the same", func(t *testing.T) {
		rec, env := app.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
			"email": "ghost@example.com",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if env.Message != "If an account exists, a password reset email has been sent." {
			t.Fatalf("message = %q", env.Message)
		}
	})
}

func TestAuthPasswordResetFlow(t *testing.T) {
	app := newTestApp(t)
	app.bearerFor("carol")

	rec, _ := app.do(http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
		"email": "carol@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("forgot-password status = %d", rec.Code)
	}
	mail, ok := app.emails.lastOfKind("password_reset")
	if !ok {
		t.Fatal("reset email not captured")
	}

	t.Run("weak replacement rejected before burning the token", func(t *testing.T) {
		rec, _ := app.do(http.MethodPost, "/api/auth/reset-password", "", map[string]string{
			"token":    mail.Token,
			"password": "short",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("reset succeeds", func(t *testing.T) {
		rec, env := app.do(http.MethodPost, "/api/auth/reset-password", "", map[string]string{
			"token":    mail.Token,
			"password": "new-password-456",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
		}
		if env.Message != "Password reset successfully" {
			t.Fatalf("message = %q", env.Message)
		}
	})

	t.Run("old password is dead, new one works", func(t *testing.T) {
		rec, _ := app.do(http.MethodPost, "/api/auth/sign-in", "", map[string]string{
			"email":    "carol@example.com",
			"password": "password123",
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("old password status = %d, want 401", rec.Code)
		}
		rec, _ = app.do(http.MethodPost, "/api/auth/sign-in", "", map[string]string{
			"email":    "carol@example.com",
			"password": "new-password-456",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("new password status = %d, want 200", rec.Code)
		}
	})

	t.Run("reset token is single use", func(t *testing.T) {
		rec, _ := app.do(http.MethodPost, "/api/auth/reset-password", "", map[string]string{
			"token":    mail.Token,
			"password": "another-password-789",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestAuthSignupValidation(t *testing.T) {
	app := newTestApp(t)
	tests := []struct {
		name string
		body map[string]string
	}{
		{"short username", map[string]string{"username": "ab", "email": "a@example.com", "password": "password123"}},
		{"bad email", map[string]string{"username": "dave", "email": "not-an-email", "password": "password123"}},
		{"short password", map[string]string{"username": "dave", "email": "dave@example.com", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := app.do(http.MethodPost, "/api/auth/sign-up", "", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}

	t.Run("missing body", func(t *testing.T) {
		rec, _ := app.do(http.MethodPost, "/api/auth/sign-up", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

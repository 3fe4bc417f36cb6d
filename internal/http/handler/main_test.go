package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blogverse/blogverse/internal/config"
	"github.com/blogverse/blogverse/internal/database"
	"github.com/blogverse/blogverse/internal/health"
	"github.com/blogverse/blogverse/internal/http/handler"
	"github.com/blogverse/blogverse/internal/http/router"
	"github.com/blogverse/blogverse/internal/repository"
	"github.com/blogverse/blogverse/internal/security"
	"github.com/blogverse/blogverse/internal/service"
)

type capturedEmail struct {
	Kind  string
	Email string
	Token string
}

// captureNotifier records outgoing notifications so tests can pull the
// verification and reset tokens a real user would receive by mail.
type captureNotifier struct {
	mu   sync.Mutex
	sent []capturedEmail
}

func (n *captureNotifier) SendVerification(ctx context.Context, v service.VerificationNotification) error {
	n.record(capturedEmail{Kind: "verification", Email: v.Email, Token: v.Token})
	return nil
}

func (n *captureNotifier) SendPasswordReset(ctx context.Context, v service.PasswordResetNotification) error {
	n.record(capturedEmail{Kind: "password_reset", Email: v.Email, Token: v.Token})
	return nil
}

func (n *captureNotifier) SendWelcome(ctx context.Context, email, username string) error {
	n.record(capturedEmail{Kind: "welcome", Email: email})
	return nil
}

func (n *captureNotifier) record(e capturedEmail) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, e)
}

func (n *captureNotifier) lastOfKind(kind string) (capturedEmail, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Kind == kind {
			return n.sent[i], true
		}
	}
	return capturedEmail{}, false
}

type testApp struct {
	t       *testing.T
	db      *gorm.DB
	emails  *captureNotifier
	handler http.Handler
}

func newTestApp(t *testing.T) *testApp {
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

	cfg := &config.Config{
		JWTIssuer:             "blogverse",
		JWTAudience:           "blogverse-api",
		JWTSecret:             "test-secret-key-0123456789",
		JWTTTL:                time.Hour,
		EmailVerifyTokenTTL:   24 * time.Hour,
		PasswordResetTokenTTL: time.Hour,
		FrontendURL:           "http://localhost:3000",
		CORSAllowedOrigins:    []string{"http://localhost:3000"},
	}
	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtMgr := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSecret, cfg.JWTTTL)

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewCredentialTokenRepository(db)
	storyRepo := repository.NewStoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)
	tagRepo := repository.NewTagRepository(db)

	emails := &captureNotifier{}
	store := service.NewCredentialTokenStore(tokenRepo, discard)
	authSvc := service.NewAuthService(cfg, userRepo, store, repository.NewAtomic(db), jwtMgr, emails, discard)
	userSvc := service.NewUserService(userRepo, nil, discard)
	tagSvc := service.NewTagService(tagRepo, nil, 5*time.Minute, discard)
	storySvc := service.NewStoryService(storyRepo, followRepo, userRepo, tagSvc)
	commentSvc := service.NewCommentService(commentRepo, storyRepo, userRepo)
	followSvc := service.NewFollowService(followRepo, userRepo)

	h := router.NewRouter(router.Dependencies{
		AuthHandler:    handler.NewAuthHandler(authSvc),
		UserHandler:    handler.NewUserHandler(userSvc),
		StoryHandler:   handler.NewStoryHandler(storySvc),
		CommentHandler: handler.NewCommentHandler(commentSvc),
		FollowHandler:  handler.NewFollowHandler(followSvc),
		TagHandler:     handler.NewTagHandler(tagSvc),
		JWTManager:     jwtMgr,
		CORSOrigins:    cfg.CORSAllowedOrigins,
		Readiness:      health.NewProbeRunner(time.Second, health.NewDBChecker(db)),
	})

	return &testApp{t: t, db: db, emails: emails, handler: h}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testApp) do(method, path, bearer string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			a.t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			a.t.Fatalf("decode envelope %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

// signup registers a user and returns the email address used.
func (a *testApp) signup(username string) string {
	a.t.Helper()
	email := username + "@example.com"
	rec, _ := a.do(http.MethodPost, "/api/auth/sign-up", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "password123",
	})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("sign-up for %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	return email
}

// bearerFor runs the full signup, verify and login flow for a fresh user
// and returns a usable bearer token.
func (a *testApp) bearerFor(username string) string {
	a.t.Helper()
	email := a.signup(username)

	mail, ok := a.emails.lastOfKind("verification")
	if !ok || mail.Email != email {
		a.t.Fatalf("no verification email captured for %s", email)
	}
	rec, _ := a.do(http.MethodPost, "/api/auth/verify-email", "", map[string]string{"token": mail.Token})
	if rec.Code != http.StatusOK {
		a.t.Fatalf("verify-email: status %d body %s", rec.Code, rec.Body.String())
	}

	rec, env := a.do(http.MethodPost, "/api/auth/sign-in", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	if rec.Code != http.StatusOK {
		a.t.Fatalf("sign-in: status %d body %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || data.Token == "" {
		a.t.Fatalf("sign-in response missing token: %s", env.Data)
	}
	return data.Token
}

// createStory publishes a story through the API and returns its id and slug.
func (a *testApp) createStory(bearer, title string, tags ...string) (string, string) {
	a.t.Helper()
	rec, env := a.do(http.MethodPost, "/api/stories", bearer, map[string]any{
		"title":   title,
		"content": map[string]any{"blocks": []any{}},
		"tags":    tags,
		"publish": true,
	})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("create story: status %d body %s", rec.Code, rec.Body.String())
	}
	var data struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		a.t.Fatalf("decode story: %v", err)
	}
	return data.ID, data.Slug
}

func jsonPath(t *testing.T, raw json.RawMessage, dst any) {
	t.Helper()
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

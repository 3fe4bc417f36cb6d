package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/blogverse/blogverse/internal/domain"
	"github.com/blogverse/blogverse/internal/observability"
	"github.com/blogverse/blogverse/internal/repository"
	"github.com/blogverse/blogverse/internal/security"
)

// CredentialTokenStore mints and looks up the single-use tokens behind
// email verification and password reset links.
type CredentialTokenStore struct {
	tokens   repository.CredentialTokenRepository
	generate func() (string, error)
	now      func() time.Time
	logger   *slog.Logger
}

func NewCredentialTokenStore(tokens repository.CredentialTokenRepository, logger *slog.Logger) *CredentialTokenStore {
	return &CredentialTokenStore{
		tokens:   tokens,
		generate: security.NewOpaqueToken,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
}

// Issue invalidates any live tokens of the same type for the user, then
// mints a fresh one. The two steps are deliberately not atomic: if the
// insert fails after the invalidation, the user retries and ends up with
// zero or one live token, never two.
func (s *CredentialTokenStore) Issue(ctx context.Context, userID uuid.UUID, tokenType domain.TokenType, ttl time.Duration) (*domain.CredentialToken, error) {
	now := s.now()
	if err := s.tokens.InvalidateLiveByUserType(userID, tokenType, now); err != nil {
		return nil, err
	}

	raw, err := s.generate()
	if err != nil {
		return nil, err
	}
	token := &domain.CredentialToken{
		UserID:    userID,
		Token:     raw,
		TokenType: tokenType,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.tokens.Create(token); err != nil {
		return nil, err
	}
	observability.RecordCredentialTokenEvent(ctx, string(tokenType), "issued")
	s.logger.DebugContext(ctx, "credential token issued",
		"user_id", userID,
		"token_type", tokenType,
		"expires_at", token.ExpiresAt,
	)
	return token, nil
}

// FindLive resolves a raw token string to its live record. Absent, consumed
// and expired tokens all surface as repository.ErrCredentialTokenNotFound.
func (s *CredentialTokenStore) FindLive(ctx context.Context, raw string, tokenType domain.TokenType) (*domain.CredentialToken, error) {
	token, err := s.tokens.FindLiveByToken(raw, tokenType, s.now())
	if err != nil {
		observability.RecordCredentialTokenEvent(ctx, string(tokenType), "rejected")
		return nil, err
	}
	return token, nil
}

func (s *CredentialTokenStore) Now() time.Time { return s.now() }

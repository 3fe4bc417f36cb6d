package service

import (
	"context"
	"log/slog"
	"time"
)

type VerificationNotification struct {
	Email           string
	Username        string
	Token           string
	ExpiresAt       time.Time
	VerificationURL string
}

type PasswordResetNotification struct {
	Email     string
	Username  string
	Token     string
	ExpiresAt time.Time
	ResetURL  string
}

// EmailNotifier delivers the credential lifecycle emails. Callers treat
// delivery as best effort: a failed send never fails the enclosing flow.
type EmailNotifier interface {
	SendVerification(ctx context.Context, n VerificationNotification) error
	SendPasswordReset(ctx context.Context, n PasswordResetNotification) error
	SendWelcome(ctx context.Context, email, username string) error
}

// DevEmailNotifier logs the links instead of sending mail. Used when SMTP
// is disabled so local signups stay testable.
type DevEmailNotifier struct {
	logger *slog.Logger
}

func NewDevEmailNotifier(logger *slog.Logger) *DevEmailNotifier {
	return &DevEmailNotifier{logger: logger}
}

func (n *DevEmailNotifier) SendVerification(ctx context.Context, notification VerificationNotification) error {
	n.logger.InfoContext(ctx, "email verification token issued",
		"email", notification.Email,
		"username", notification.Username,
		"expires_at", notification.ExpiresAt,
		"verification_url", notification.VerificationURL,
	)
	return nil
}

func (n *DevEmailNotifier) SendPasswordReset(ctx context.Context, notification PasswordResetNotification) error {
	n.logger.InfoContext(ctx, "password reset token issued",
		"email", notification.Email,
		"username", notification.Username,
		"expires_at", notification.ExpiresAt,
		"reset_url", notification.ResetURL,
	)
	return nil
}

func (n *DevEmailNotifier) SendWelcome(ctx context.Context, email, username string) error {
	n.logger.InfoContext(ctx, "welcome email suppressed", "email", email, "username", username)
	return nil
}

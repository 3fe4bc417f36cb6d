package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/blogverse/blogverse/internal/config"
	"github.com/blogverse/blogverse/internal/observability"
)

// SMTPEmailNotifier sends credential lifecycle mail over SMTP. Port 465
// means implicit TLS, anything else negotiates STARTTLS.
type SMTPEmailNotifier struct {
	cfg         *config.Config
	frontendURL string
}

func NewSMTPEmailNotifier(cfg *config.Config) (*SMTPEmailNotifier, error) {
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	return &SMTPEmailNotifier{
		cfg:         cfg,
		frontendURL: strings.TrimSuffix(cfg.FrontendURL, "/"),
	}, nil
}

func (s *SMTPEmailNotifier) SendVerification(ctx context.Context, n VerificationNotification) error {
	verifyURL := n.VerificationURL
	if verifyURL == "" {
		verifyURL = fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, n.Token)
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to BlogVerse! Please verify your email address by opening the link below:\n\n%s\n\nThe link expires at %s. If you did not create an account, you can ignore this message.\n",
		n.Username, verifyURL, n.ExpiresAt.Format("Mon, 2 Jan 2006 15:04 MST"),
	)
	err := s.send(ctx, n.Email, "Verify your BlogVerse email", body)
	s.recordDelivery(ctx, "verification", err)
	return err
}

func (s *SMTPEmailNotifier) SendPasswordReset(ctx context.Context, n PasswordResetNotification) error {
	resetURL := n.ResetURL
	if resetURL == "" {
		resetURL = fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, n.Token)
	}
	body := fmt.Sprintf(
		"Hi %s,\n\nWe received a request to reset your BlogVerse password. Open the link below to choose a new one:\n\n%s\n\nThe link expires at %s and can be used once. If you did not request a reset, you can ignore this message.\n",
		n.Username, resetURL, n.ExpiresAt.Format("Mon, 2 Jan 2006 15:04 MST"),
	)
	err := s.send(ctx, n.Email, "Reset your BlogVerse password", body)
	s.recordDelivery(ctx, "password_reset", err)
	return err
}

func (s *SMTPEmailNotifier) SendWelcome(ctx context.Context, email, username string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour email is verified and your BlogVerse account is ready. Start writing:\n\n%s/dashboard\n\nHappy publishing!\n",
		username, s.frontendURL,
	)
	err := s.send(ctx, email, "Welcome to BlogVerse", body)
	s.recordDelivery(ctx, "welcome", err)
	return err
}

func (s *SMTPEmailNotifier) recordDelivery(ctx context.Context, kind string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "error"
	}
	observability.RecordEmailDelivery(ctx, kind, outcome)
}

func (s *SMTPEmailNotifier) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.cfg.FromName, s.cfg.FromEmail); err != nil {
		return fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if s.cfg.SMTPPort == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if s.cfg.SMTPUsername != "" && s.cfg.SMTPPassword != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.SMTPUsername),
			mail.WithPassword(s.cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(s.cfg.SMTPHost, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

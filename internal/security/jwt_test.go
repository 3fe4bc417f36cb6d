package security

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestJWTManager(ttl time.Duration) *JWTManager {
	return NewJWTManager("blogverse", "blogverse-api", "test-secret", ttl)
}

func TestJWTIssueAndValidate(t *testing.T) {
	mgr := newTestJWTManager(time.Hour)
	userID := uuid.New()

	raw, err := mgr.Issue(userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := mgr.Validate(raw)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	got, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if got != userID {
		t.Fatalf("subject mismatch: got %s want %s", got, userID)
	}
	if exp := claims.ExpiresAt.Time; exp.Before(time.Now().Add(55 * time.Minute)) {
		t.Fatalf("expected ~1h expiry, got %s", time.Until(exp))
	}
}

func TestJWTValidateFailuresCollapse(t *testing.T) {
	mgr := newTestJWTManager(time.Hour)
	userID := uuid.New()

	expiredMgr := newTestJWTManager(-time.Minute)
	expired, err := expiredMgr.Issue(userID)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}

	otherSecret := NewJWTManager("blogverse", "blogverse-api", "other-secret", time.Hour)
	forged, err := otherSecret.Issue(userID)
	if err != nil {
		t.Fatalf("issue forged: %v", err)
	}

	for name, raw := range map[string]string{
		"expired":         expired,
		"wrong signature": forged,
		"malformed":       "not.a.jwt",
		"empty":           "",
	} {
		if _, err := mgr.Validate(raw); err != ErrInvalidBearerToken {
			t.Fatalf("%s: expected ErrInvalidBearerToken, got %v", name, err)
		}
	}
}

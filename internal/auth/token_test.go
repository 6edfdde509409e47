package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testManager() *Manager {
	return NewManager("test-secret-key")
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	m := testManager()

	raw, err := m.Issue(42, "Alice", "alice@example.com", SessionScope)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, err := m.Verify(raw, SessionScope)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if claims.Email != "alice@example.com" {
		t.Fatalf("email claim mismatch: got %q", claims.Email)
	}
	if claims.Name != "Alice" {
		t.Fatalf("name claim mismatch: got %q", claims.Name)
	}

	id, err := claims.SubjectID()
	if err != nil {
		t.Fatalf("subject should parse: %v", err)
	}
	if id != 42 {
		t.Fatalf("subject mismatch: got %d want 42", id)
	}
}

func TestVerify_ScopeMismatch(t *testing.T) {
	m := testManager()

	sessionToken, err := m.Issue(1, "Bob", "bob@example.com", SessionScope)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// a session token must never pass where a reset token is expected
	_, err = m.Verify(sessionToken, ResetScope)
	if !errors.Is(err, ErrTokenScopeMismatch) {
		t.Fatalf("expected ErrTokenScopeMismatch, got %v", err)
	}

	resetToken, err := m.Issue(1, "Bob", "bob@example.com", ResetScope)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	_, err = m.Verify(resetToken, SessionScope)
	if !errors.Is(err, ErrTokenScopeMismatch) {
		t.Fatalf("expected ErrTokenScopeMismatch, got %v", err)
	}
}

func TestVerify_Expired(t *testing.T) {
	m := testManager()

	expired := Scope{Issuer: SessionScope.Issuer, Audience: SessionScope.Audience, TTL: -time.Minute}

	raw, err := m.Issue(7, "Carol", "carol@example.com", expired)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	_, err = m.Verify(raw, SessionScope)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerify_TamperedSignature(t *testing.T) {
	m := testManager()

	raw, err := m.Issue(7, "Carol", "carol@example.com", SessionScope)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", raw)
	}
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]

	_, err = m.Verify(tampered, SessionScope)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_WrongKey(t *testing.T) {
	raw, err := testManager().Issue(7, "Carol", "carol@example.com", SessionScope)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	_, err = NewManager("other-secret").Verify(raw, SessionScope)
	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestSubjectID_Invalid(t *testing.T) {
	c := &Claims{}
	c.Subject = "not-a-number"

	if _, err := c.SubjectID(); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

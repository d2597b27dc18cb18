package service

import (
	"strings"
	"testing"
)

func TestSessionRoundTrip(t *testing.T) {
	svc := NewSessionService("test-secret")

	token, err := svc.IssueToken(Identity{EndUserID: "user-1", DisplayName: "Jane Smith"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	identity, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if identity.EndUserID != "user-1" {
		t.Errorf("expected end user 'user-1', got %q", identity.EndUserID)
	}
	if identity.DisplayName != "Jane Smith" {
		t.Errorf("expected display name 'Jane Smith', got %q", identity.DisplayName)
	}
}

func TestSessionRejectsTamperedToken(t *testing.T) {
	svc := NewSessionService("test-secret")

	token, err := svc.IssueToken(Identity{EndUserID: "user-1", DisplayName: "Jane Smith"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := svc.ValidateToken(tampered); err == nil {
		t.Error("expected tampered token to be rejected")
	}
}

func TestSessionRejectsWrongSecret(t *testing.T) {
	token, err := NewSessionService("secret-a").IssueToken(Identity{EndUserID: "user-1"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if _, err := NewSessionService("secret-b").ValidateToken(token); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
}

func TestSessionRejectsGarbage(t *testing.T) {
	svc := NewSessionService("test-secret")
	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.ValidateToken(token); err == nil {
			t.Errorf("expected %q to be rejected", token)
		}
	}
}

func TestGenerateDisplayName(t *testing.T) {
	name := GenerateDisplayName()
	if !strings.Contains(name, " ") {
		t.Errorf("expected 'First Last' shape, got %q", name)
	}
}

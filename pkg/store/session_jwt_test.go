package store

import (
	"testing"
	"time"
)

func TestJWTSessionRoundTrip(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", NewMemoryTokenRevoker(), JWTSessionOptions{TTL: time.Minute})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok {
		t.Fatalf("resolve token: ok=%v err=%v", ok, err)
	}
	if uid != "user-1" {
		t.Fatalf("unexpected user id: %q", uid)
	}
}

func TestJWTSessionRejectsGarbage(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", nil, JWTSessionOptions{TTL: time.Minute})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken("not-a-jwt"); ok || err == nil {
		t.Fatalf("expected rejection, got ok=%v err=%v", ok, err)
	}
	if _, ok, err := s.GetUserIDByToken(""); ok || err == nil {
		t.Fatalf("expected rejection of empty token, got ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionRejectsWrongSecret(t *testing.T) {
	issuer, err := NewJWTSessionStore("secret-a", nil, JWTSessionOptions{TTL: time.Minute})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	verifier, err := NewJWTSessionStore("secret-b", nil, JWTSessionOptions{TTL: time.Minute})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := issuer.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := verifier.GetUserIDByToken(token); ok || err == nil {
		t.Fatalf("expected signature rejection, got ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionDeleteRevokesToken(t *testing.T) {
	s, err := NewJWTSessionStore("test-secret", NewMemoryTokenRevoker(), JWTSessionOptions{TTL: time.Minute})
	if err != nil {
		t.Fatalf("new session store: %v", err)
	}
	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); ok || err == nil {
		t.Fatalf("expected revoked token rejection, got ok=%v err=%v", ok, err)
	}
}

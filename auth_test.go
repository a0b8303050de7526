package main

import (
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	user := User{ID: 42, Email: "roundtrip@example.com", Role: RoleUser}

	token, err := GenerateToken(&user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	id, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if id != user.ID {
		t.Errorf("ParseToken id = %d, want %d", id, user.ID)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	for _, tok := range []string{"", "not-a-token", "aaaa.bbbb.cccc"} {
		if _, err := ParseToken(tok); err == nil {
			t.Errorf("ParseToken(%q) succeeded, want error", tok)
		}
	}
}

func TestParseTokenRejectsTamperedSignature(t *testing.T) {
	user := User{ID: 7, Email: "tamper@example.com", Role: RoleSuperAdmin}
	token, err := GenerateToken(&user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tampered := token[:len(token)-2] + "xx"
	if _, err := ParseToken(tampered); err == nil {
		t.Error("tampered token accepted")
	}
}

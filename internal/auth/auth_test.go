package auth

import (
	"strings"
	"testing"
	"time"
)

func TestSHA256Hex_Deterministic(t *testing.T) {
	body := []byte("[\n  {\n    \"id\": \"r1\"\n  }\n]")
	first := SHA256Hex(body)
	if first != SHA256Hex(body) {
		t.Error("hash of unchanged bytes changed between calls")
	}
	if got := SHA256Hex([]byte("[]")); got != "4f53cda18c2baa0c0354bb5f9a3ecbe5ed12ab4d8e11ba873c2f11161202b945" {
		t.Errorf("unexpected hash of []: %s", got)
	}
}

func TestHMACHex_Verify(t *testing.T) {
	sig, err := HMACHex("whsec", "123.{}")
	if err != nil {
		t.Fatalf("HMACHex failed: %v", err)
	}
	if err := VerifyHMACHex("whsec", "123.{}", sig); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
	if err := VerifyHMACHex("whsec", "124.{}", sig); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for tampered data, got %v", err)
	}
	if err := VerifyHMACHex("whsec", "123.{}", "zz"); err != ErrInvalidToken {
		t.Errorf("Expected ErrInvalidToken for non-hex signature, got %v", err)
	}
	if _, err := HMACHex("", "x"); err != ErrMissingSecret {
		t.Errorf("Expected ErrMissingSecret, got %v", err)
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !ConstantTimeEqual("abc", "abc") {
		t.Error("equal strings reported different")
	}
	if ConstantTimeEqual("abc", "abd") || ConstantTimeEqual("abc", "abcd") {
		t.Error("different strings reported equal")
	}
	if ConstantTimeEqual("", "") {
		t.Error("empty strings must never match")
	}
}

func TestPasswordHash(t *testing.T) {
	ph := PasswordHash{Salt: "s", Iterations: 10, Hash: PBKDF2Hex("hunter2", "s", 10, KeyLength)}

	if !ph.Check("hunter2") {
		t.Error("correct password rejected")
	}
	if ph.Check("hunter3") {
		t.Error("wrong password accepted")
	}

	parsed := ParsePasswordHash(ph.String())
	if parsed != ph {
		t.Errorf("round trip mismatch: %+v vs %+v", parsed, ph)
	}

	bare := ParsePasswordHash("deadbeef")
	if bare.Salt != DefaultSalt || bare.Iterations != DefaultIterations || bare.Hash != "deadbeef" {
		t.Errorf("bare digest parsed as %+v", bare)
	}

	if (PasswordHash{}).Check("") {
		t.Error("empty hash must not verify")
	}
}

func TestSessionManager_IssueVerify(t *testing.T) {
	m := NewSessionManager("secret", time.Hour)
	now := time.Unix(1700000000, 0)
	m.now = func() time.Time { return now }

	tok, err := m.Issue("alice", RoleSuperadmin)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	s, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if s.User != "alice" || s.Role != RoleSuperadmin {
		t.Errorf("unexpected session %+v", s)
	}
	if s.Exp.Unix() != now.Add(time.Hour).Unix() {
		t.Errorf("unexpected expiry %v", s.Exp)
	}

	// Expired
	m.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := m.Verify(tok); err != ErrExpiredToken {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}

func TestSessionManager_RejectsTampering(t *testing.T) {
	m := NewSessionManager("secret", time.Hour)
	tok, err := m.Issue("bob", RoleUser)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	payload, sig, _ := strings.Cut(tok, ".")

	other := NewSessionManager("other-secret", time.Hour)
	forged, _ := other.Issue("bob", RoleSuperadmin)
	forgedPayload, _, _ := strings.Cut(forged, ".")

	for name, candidate := range map[string]string{
		"swapped payload": forgedPayload + "." + sig,
		"wrong secret":    forged,
		"no signature":    payload,
		"garbage":         "not-a-token",
		"empty":           "",
	} {
		if _, err := m.Verify(candidate); err != ErrInvalidToken {
			t.Errorf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

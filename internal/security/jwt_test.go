package security

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestJWTIssueAndVerify(t *testing.T) {
	mgr := NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456")
	cred, err := mgr.Issue(42, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	userID, err := mgr.Verify(cred)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != 42 {
		t.Fatalf("unexpected user id: %d", userID)
	}
}

func TestJWTVerifyRejectsForeignAndExpired(t *testing.T) {
	mgr := NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456")

	other := NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz654321")
	foreign, err := other.Issue(7, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Verify(foreign); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for foreign signature, got %v", err)
	}

	expired, err := mgr.Issue(7, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Verify(expired); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for expired credential, got %v", err)
	}

	wrongAudience := NewJWTManager("iss", "other-aud", "abcdefghijklmnopqrstuvwxyz123456")
	mismatched, err := wrongAudience.Issue(7, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Verify(mismatched); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential for audience mismatch, got %v", err)
	}
}

func FuzzVerifyRobustness(f *testing.F) {
	mgr := NewJWTManager("iss", "aud", "abcdefghijklmnopqrstuvwxyz123456")
	valid, _ := mgr.Issue(42, time.Minute)

	f.Add(valid)
	f.Add("")
	f.Add("not-a-jwt")
	f.Add("header.payload.signature")
	f.Add(strings.Repeat("a", 8192))

	f.Fuzz(func(t *testing.T, raw string) {
		if len(raw) > 16384 {
			raw = raw[:16384]
		}
		userID, err := mgr.Verify(raw)
		if err == nil && userID == 0 {
			t.Fatal("successful verify must return a non-zero user id")
		}
		if err != nil && !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("verify errors must be ErrInvalidCredential, got %v", err)
		}
	})
}

func TestHashTokenIsDeterministicAndPeppered(t *testing.T) {
	a := HashToken("raw", "pepper-1")
	if a != HashToken("raw", "pepper-1") {
		t.Fatal("hash must be deterministic")
	}
	if a == HashToken("raw", "pepper-2") {
		t.Fatal("hash must depend on pepper")
	}
	if len(a) != 64 {
		t.Fatalf("unexpected hash length: %d", len(a))
	}
}

func TestNewRandomStringUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		s, err := NewRandomString(32)
		if err != nil {
			t.Fatal(err)
		}
		if _, dup := seen[s]; dup {
			t.Fatal("random string collision")
		}
		seen[s] = struct{}{}
	}
}

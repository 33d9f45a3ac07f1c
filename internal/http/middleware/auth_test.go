package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"clinic-federation-service/internal/security"
)

type stubValidator struct {
	userID uint
	err    error
	seen   string
}

func (s *stubValidator) Validate(_ context.Context, credential string) (uint, error) {
	s.seen = credential
	return s.userID, s.err
}

func TestSessionAuthBearerCredential(t *testing.T) {
	validator := &stubValidator{userID: 42}
	var gotUserID uint
	var gotOK bool
	h := SessionAuth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, gotOK = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	req.Header.Set("Authorization", "Bearer cred-abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !gotOK || gotUserID != 42 {
		t.Fatalf("expected user 42 in context, got %d ok=%v", gotUserID, gotOK)
	}
	if validator.seen != "cred-abc" {
		t.Fatalf("expected bearer credential forwarded, got %q", validator.seen)
	}
}

func TestSessionAuthCookieFallback(t *testing.T) {
	validator := &stubValidator{userID: 7}
	h := SessionAuth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	req.AddCookie(&http.Cookie{Name: security.SessionCookieName, Value: "cookie-cred"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if validator.seen != "cookie-cred" {
		t.Fatalf("expected cookie credential forwarded, got %q", validator.seen)
	}
}

func TestSessionAuthMissingCredential(t *testing.T) {
	h := SessionAuth(&stubValidator{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a credential")
	}))

	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestSessionAuthInvalidCredential(t *testing.T) {
	validator := &stubValidator{err: errors.New("invalid session")}
	h := SessionAuth(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an invalid credential")
	}))

	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestUserIDFromContextMissing(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user id in an empty context")
	}
}

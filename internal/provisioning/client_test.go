package provisioning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type countingDoer struct {
	calls int
	err   error
}

func (d *countingDoer) Do(*http.Request) (*http.Response, error) {
	d.calls++
	return nil, d.err
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"http://x/":  "http://x",
		"http://x":   "http://x",
		"http://x//": "http://x/",
		"":           "",
	}
	for in, want := range cases {
		if got := NormalizeBaseURL(in); got != want {
			t.Fatalf("NormalizeBaseURL(%q)=%q want %q", in, got, want)
		}
	}
}

func TestInitializeTenantBlankBaseURLShortCircuits(t *testing.T) {
	doer := &countingDoer{}
	client := NewClient(Config{HTTPClient: doer})

	res := client.InitializeTenant(context.Background(), "", TenantPayload{ID: 1})
	if res.Success {
		t.Fatal("expected failure for blank base url")
	}
	if !strings.Contains(res.ErrorMessage, "baseUrl") {
		t.Fatalf("error message must reference baseUrl: %q", res.ErrorMessage)
	}
	if doer.calls != 0 {
		t.Fatalf("expected no network call, got %d", doer.calls)
	}
}

func TestInitializeTenantSuccessParsesActivationMaterial(t *testing.T) {
	var gotBody map[string]any
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth, _, _ = r.BasicAuth()
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"adminNickname": "admin-clinic",
			"activationUrl": "https://node.example/activate",
			"activationToken": "tok-abc",
			"tokenExpiresAt": "2025-07-01T10:00:00Z"
		}`))
	}))
	defer srv.Close()

	client := NewClient(Config{Timeout: time.Second, Username: "registry", Password: "s3cret"})
	res := client.InitializeTenant(context.Background(), srv.URL+"/", TenantPayload{
		ID:      7,
		LegalID: "12345678",
		Name:    "Test Clinic",
	})
	if !res.Success {
		t.Fatalf("expected success, got %q", res.ErrorMessage)
	}
	if res.AdminNickname != "admin-clinic" || res.ActivationToken != "tok-abc" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.TokenExpiresAt == nil || !res.TokenExpiresAt.Equal(time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected expiry: %v", res.TokenExpiresAt)
	}
	if gotPath != "/tenants" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotAuth != "registry" {
		t.Fatalf("expected basic auth user, got %q", gotAuth)
	}
	// blank fields must be omitted from the wire body
	for _, absent := range []string{"department", "locality", "address", "contact", "url", "remoteUser"} {
		if _, ok := gotBody[absent]; ok {
			t.Fatalf("blank field %q must be omitted, body=%v", absent, gotBody)
		}
	}
	if gotBody["legalId"] != "12345678" {
		t.Fatalf("legalId missing from body: %v", gotBody)
	}
}

func TestInitializeTenantConvertsTransportFailures(t *testing.T) {
	doer := &countingDoer{err: errors.New("connection refused")}
	client := NewClient(Config{HTTPClient: doer})

	res := client.InitializeTenant(context.Background(), "http://node.example", TenantPayload{ID: 1})
	if res.Success {
		t.Fatal("expected failure on transport error")
	}
	if res.ErrorMessage == "" {
		t.Fatal("expected descriptive error message")
	}
}

func TestInitializeTenantNon2xxAndBadJSONFail(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		res := NewClient(Config{Timeout: time.Second}).InitializeTenant(context.Background(), srv.URL, TenantPayload{ID: 1})
		if res.Success {
			t.Fatal("expected failure on 502")
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		res := NewClient(Config{Timeout: time.Second}).InitializeTenant(context.Background(), srv.URL, TenantPayload{ID: 1})
		if res.Success {
			t.Fatal("expected failure on malformed body")
		}
	})
}

func TestUpdateTenantFailSoftContract(t *testing.T) {
	doer := &countingDoer{}
	client := NewClient(Config{HTTPClient: doer})

	if client.UpdateTenant(context.Background(), "", TenantPayload{ID: 1}) {
		t.Fatal("blank base url must return false")
	}
	if client.UpdateTenant(context.Background(), "http://node.example", TenantPayload{}) {
		t.Fatal("zero tenant id must return false")
	}
	if doer.calls != 0 {
		t.Fatalf("expected no network calls, got %d", doer.calls)
	}

	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ok := NewClient(Config{Timeout: time.Second}).UpdateTenant(context.Background(), srv.URL+"/", TenantPayload{ID: 12, Name: "Clinic"})
	if !ok {
		t.Fatal("expected update success")
	}
	if gotMethod != http.MethodPut || gotPath != "/tenants/12" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
}

func TestDeleteTenantFailSoftContract(t *testing.T) {
	doer := &countingDoer{}
	client := NewClient(Config{HTTPClient: doer})

	if client.DeleteTenant(context.Background(), "http://node.example", " ") {
		t.Fatal("blank legal id must return false")
	}
	if client.DeleteTenant(context.Background(), "", "12345678") {
		t.Fatal("blank base url must return false")
	}
	if doer.calls != 0 {
		t.Fatalf("expected no network calls, got %d", doer.calls)
	}

	var gotMethod, gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = json.Marshal(r.ContentLength)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if !NewClient(Config{Timeout: time.Second}).DeleteTenant(context.Background(), srv.URL, "12345678") {
		t.Fatal("expected delete success")
	}
	if gotMethod != http.MethodDelete || gotPath != "/tenants/12345678" {
		t.Fatalf("unexpected request: %s %s", gotMethod, gotPath)
	}
	if string(gotBody) != "0" {
		t.Fatalf("delete must carry no body, content length %s", gotBody)
	}

	failing := NewClient(Config{HTTPClient: &countingDoer{err: errors.New("timeout")}})
	if failing.DeleteTenant(context.Background(), "http://node.example", "12345678") {
		t.Fatal("transport error must return false")
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sprintline/sprintline/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		Server: config.ServerConfig{Addr: ":0"},
		Auth: config.AuthConfig{
			JWTSecret: "test-secret-key-1234567890",
		},
	}
	s := New(cfg, "test", nil)
	users := newFakeUserStore()
	users.passwords["admin"] = "secret"
	s.SetUserStore(users)
	return s
}

func TestSignAndVerifyJWT(t *testing.T) {
	secret := "my-test-secret"
	token, err := signJWT(secret, "alice")
	if err != nil {
		t.Fatalf("signJWT: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	subject, err := verifyJWT(secret, token)
	if err != nil {
		t.Fatalf("verifyJWT: %v", err)
	}
	if subject != "alice" {
		t.Errorf("expected subject 'alice', got %q", subject)
	}
}

func TestVerifyJWT_BadSignature(t *testing.T) {
	token, _ := signJWT("correct-secret", "alice")
	_, err := verifyJWT("wrong-secret", token)
	if err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestVerifyJWT_Malformed(t *testing.T) {
	if _, err := verifyJWT("secret", "not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestHandleLogin(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(loginRequest{Username: "admin", Password: "secret"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	s.handleLogin(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", rr.Code, rr.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token")
	}

	subject, err := verifyJWT(s.jwtSecret(), resp.Token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if subject != "admin" {
		t.Errorf("subject = %q, want admin", subject)
	}
}

func TestHandleLogin_BadCredentials(t *testing.T) {
	s := newTestServer(t)

	for _, body := range []string{
		`{"username":"admin","password":"wrong"}`,
		`{"username":"nobody","password":"secret"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader([]byte(body)))
		rr := httptest.NewRecorder()
		s.handleLogin(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("body %s: status = %d, want 401", body, rr.Code)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	protected := s.authMiddleware(next)

	// No header
	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no header: status = %d, want 401", rr.Code)
	}

	// Bad token
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rr.Code)
	}

	// Valid token
	token, err := signJWT(s.jwtSecret(), "admin")
	if err != nil {
		t.Fatalf("signJWT: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	protected.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", rr.Code)
	}
}

func TestJWTSecret_GeneratedWhenEmpty(t *testing.T) {
	cfg := config.Config{}
	s := New(cfg, "test", nil)

	first := s.jwtSecret()
	if first == "" {
		t.Fatal("expected generated secret")
	}
	if s.jwtSecret() != first {
		t.Error("generated secret not stable across calls")
	}
}

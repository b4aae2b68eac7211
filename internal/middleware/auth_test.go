package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"cabinet/internal/domain/models"
	"cabinet/internal/httputil"
)

// fakeVerifier accepts one fixed token and rejects everything else
type fakeVerifier struct {
	token   string
	subject string
}

func (v *fakeVerifier) VerifyToken(tokenString string) (*models.AccessClaims, error) {
	if tokenString != v.token {
		return nil, errors.New("signature mismatch")
	}
	return &models.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: v.subject},
	}, nil
}

func (v *fakeVerifier) Close() error { return nil }

func TestAuthMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ownerID := "3f8e8f04-26f2-4b6f-9a7e-0a6a2cf44f8f"
	verifier := &fakeVerifier{token: "good-token", subject: ownerID}

	var gotOwnerID string
	handler := AuthMiddleware(verifier, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwnerID = httputil.GetOwnerID(r)
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not a bearer token", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{name: "empty bearer", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "rejected token", header: "Bearer bad-token", wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer good-token", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotOwnerID = ""
			req := httptest.NewRequest(http.MethodGet, "/api/folders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusOK && gotOwnerID != ownerID {
				t.Errorf("expected owner id %s in context, got %q", ownerID, gotOwnerID)
			}
			if tt.wantStatus == http.StatusUnauthorized && gotOwnerID != "" {
				t.Error("expected the handler to stay unreached")
			}
		})
	}
}

func TestAuthMiddleware_PublicPaths(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	verifier := &fakeVerifier{token: "good-token", subject: "owner"}

	handler := AuthMiddleware(verifier, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected %s to bypass auth, got %d", path, rec.Code)
		}
	}
}

func TestStaticAuthMiddleware(t *testing.T) {
	ownerID := "11111111-2222-3333-4444-555555555555"
	var gotOwnerID string
	handler := StaticAuthMiddleware(ownerID)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOwnerID = httputil.GetOwnerID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/tree", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if gotOwnerID != ownerID {
		t.Errorf("expected owner id %s, got %q", ownerID, gotOwnerID)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	handler := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/folders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500 after a panic, got %d", rec.Code)
	}
}

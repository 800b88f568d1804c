package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/you/go-airfare-oracle/internal/config"
)

func testCfg() *config.Config {
	return &config.Config{JWTSecret: "s3cret", JWTUser: "demo", JWTPassword: "demo123", TokenTTL: time.Hour}
}

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(body)) })
}

func TestLoginAndMiddleware(t *testing.T) {
	cfg := testCfg()

	rec := httptest.NewRecorder()
	LoginHandler(cfg)(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"demo","password":"demo123"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var lr loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&lr))
	require.NotEmpty(t, lr.Token)

	h := JWTMiddleware(okHandler("public"), okHandler("protected"), cfg)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantBody string
	}{
		{"public auth", "/auth/login", "", http.StatusOK, "public"},
		{"public health", "/health", "", http.StatusOK, "public"},
		{"missing token", "/api/data", "", http.StatusUnauthorized, ""},
		{"bad token", "/api/data", "Bearer nope", http.StatusUnauthorized, ""},
		{"wrong scheme", "/api/data", "Basic ZGVtbzpkZW1vMTIz", http.StatusUnauthorized, ""},
		{"header token", "/api/data", "Bearer " + lr.Token, http.StatusOK, "protected"},
		{"query token", "/ws/Delhi/Cochin?token=" + lr.Token, "", http.StatusOK, "protected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				require.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestMiddleware_RejectsOtherSecretAndExpired(t *testing.T) {
	cfg := testCfg()
	h := JWTMiddleware(okHandler("public"), okHandler("protected"), cfg)

	other := *cfg
	other.JWTSecret = "different"
	foreign, err := IssueToken(&other, "demo")
	require.NoError(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "demo",
		"exp": time.Now().Add(-time.Minute).Unix(),
	}).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "demo"}).
		SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	otherAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.MapClaims{
		"sub": "demo",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	for _, tok := range []string{foreign, expired, noExp, otherAlg} {
		req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}

func TestLogin_Rejects(t *testing.T) {
	cfg := testCfg()

	rec := httptest.NewRecorder()
	LoginHandler(cfg)(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	LoginHandler(cfg)(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{")))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	LoginHandler(cfg)(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"username":"demo","password":"wrong"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

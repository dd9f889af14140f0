package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// testKeyID — идентификатор ключа для тестов.
const testKeyID = "test-key-mm"

const (
	testIssuer   = "https://securetoken.google.com/moviemap-test"
	testAudience = "moviemap-test"
)

// mockModeratorProvider — мок для ModeratorProvider.
type mockModeratorProvider struct {
	uids map[string]bool
	err  error
}

func (m *mockModeratorProvider) Exists(_ context.Context, uid string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.uids[uid], nil
}

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	nB64 := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	eB64 := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())

	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   nB64,
				"e":   eB64,
			},
		},
	}

	data, _ := json.Marshal(jwks)
	return data
}

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestAuth создаёт FirebaseAuth с локальным ключом.
func newTestAuth(t *testing.T, key *rsa.PrivateKey) *FirebaseAuth {
	t.Helper()
	jwksJSON := buildJWKSetJSON(&key.PublicKey, testKeyID)
	kf, err := keyfunc.NewJWKSetJSON(jwksJSON)
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	return NewFirebaseAuthWithKeyfunc(kf, testIssuer, testAudience, testLogger())
}

// tokenOpts — параметры тестового ID-токена.
type tokenOpts struct {
	sub      string
	email    string
	issuer   string
	audience string
	expired  bool
}

// generateToken генерирует подписанный тестовый ID-токен.
func generateToken(t *testing.T, key *rsa.PrivateKey, opts tokenOpts) string {
	t.Helper()

	if opts.issuer == "" {
		opts.issuer = testIssuer
	}
	if opts.audience == "" {
		opts.audience = testAudience
	}
	exp := time.Now().Add(time.Hour)
	if opts.expired {
		exp = time.Now().Add(-time.Hour)
	}

	claims := jwt.MapClaims{
		"sub": opts.sub,
		"iss": opts.issuer,
		"aud": opts.audience,
		"exp": jwt.NewNumericDate(exp),
		"iat": jwt.NewNumericDate(time.Now()),
	}
	if opts.email != "" {
		claims["email"] = opts.email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatal(err)
	}
	return tokenStr
}

// --- Тесты FirebaseAuth ---

// TestFirebaseAuth_ValidToken — валидный ID-токен.
func TestFirebaseAuth_ValidToken(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestAuth(t, key)

	handler := auth.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("claims не найдены в контексте")
		}
		if claims.UID != "firebase-uid-1" {
			t.Errorf("ожидался uid=firebase-uid-1, получен %s", claims.UID)
		}
		if claims.Email != "mod@example.com" {
			t.Errorf("ожидался email=mod@example.com, получен %s", claims.Email)
		}
		w.WriteHeader(http.StatusOK)
	}))

	tokenStr := generateToken(t, key, tokenOpts{sub: "firebase-uid-1", email: "mod@example.com"})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/profile", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d, тело: %s", rec.Code, rec.Body.String())
	}
}

// TestFirebaseAuth_MissingToken — отсутствие Authorization header.
func TestFirebaseAuth_MissingToken(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestAuth(t, key)
	handler := auth.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/profile", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestFirebaseAuth_InvalidFormat — некорректный формат Authorization.
func TestFirebaseAuth_InvalidFormat(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestAuth(t, key)
	handler := auth.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"no bearer prefix", "token123"},
		{"empty bearer", "Bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/profile", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался статус 401, получен %d", rec.Code)
			}
		})
	}
}

// TestFirebaseAuth_RejectedTokens — просроченный, чужой issuer, чужая audience,
// неверный ключ подписи.
func TestFirebaseAuth_RejectedTokens(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestAuth(t, key)
	handler := auth.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	otherKey := generateTestKey(t)

	tests := []struct {
		name  string
		token string
	}{
		{"просроченный", generateToken(t, key, tokenOpts{sub: "u1", expired: true})},
		{"чужой issuer", generateToken(t, key, tokenOpts{sub: "u1", issuer: "https://securetoken.google.com/other-project"})},
		{"чужая audience", generateToken(t, key, tokenOpts{sub: "u1", audience: "other-project"})},
		{"неверная подпись", generateToken(t, otherKey, tokenOpts{sub: "u1"})},
		{"мусор вместо токена", "not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/profile", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("ожидался статус 401, получен %d", rec.Code)
			}
		})
	}
}

// TestFirebaseAuth_MissingSub — токен без sub.
func TestFirebaseAuth_MissingSub(t *testing.T) {
	key := generateTestKey(t)
	auth := newTestAuth(t, key)
	handler := auth.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	tokenStr := generateToken(t, key, tokenOpts{sub: ""})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/profile", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// --- Тесты RequireModerator ---

// TestRequireModerator_Allowed — uid в whitelist.
func TestRequireModerator_Allowed(t *testing.T) {
	provider := &mockModeratorProvider{uids: map[string]bool{"mod-1": true}}
	handler := RequireModerator(provider, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	claims := &AuthClaims{UID: "mod-1"}
	ctx := context.WithValue(context.Background(), ContextKeyClaims, claims)
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("ожидался статус 200, получен %d", rec.Code)
	}
}

// TestRequireModerator_Forbidden — валидный токен, но uid не в whitelist.
// Именно 403, а не 401: пользователь аутентифицирован.
func TestRequireModerator_Forbidden(t *testing.T) {
	provider := &mockModeratorProvider{uids: map[string]bool{"mod-1": true}}
	handler := RequireModerator(provider, testLogger())(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	claims := &AuthClaims{UID: "random-user"}
	ctx := context.WithValue(context.Background(), ContextKeyClaims, claims)
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("ожидался статус 403, получен %d", rec.Code)
	}
}

// TestRequireModerator_NoClaims — отсутствие claims (middleware без auth).
func TestRequireModerator_NoClaims(t *testing.T) {
	provider := &mockModeratorProvider{uids: map[string]bool{"mod-1": true}}
	handler := RequireModerator(provider, testLogger())(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ожидался статус 401, получен %d", rec.Code)
	}
}

// TestRequireModerator_StoreError — сбой store при проверке whitelist → 503.
func TestRequireModerator_StoreError(t *testing.T) {
	provider := &mockModeratorProvider{err: errors.New("соединение разорвано")}
	handler := RequireModerator(provider, testLogger())(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler не должен быть вызван")
	}))

	claims := &AuthClaims{UID: "mod-1"}
	ctx := context.WithValue(context.Background(), ContextKeyClaims, claims)
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ожидался статус 503, получен %d", rec.Code)
	}
}

// --- Тесты context helpers ---

// TestClaimsFromContext_Empty — пустой контекст.
func TestClaimsFromContext_Empty(t *testing.T) {
	if claims := ClaimsFromContext(context.Background()); claims != nil {
		t.Errorf("ожидался nil, получено %+v", claims)
	}
}

// TestUIDFromContext — извлечение uid.
func TestUIDFromContext(t *testing.T) {
	claims := &AuthClaims{UID: "firebase-uid-1"}
	ctx := context.WithValue(context.Background(), ContextKeyClaims, claims)

	if uid := UIDFromContext(ctx); uid != "firebase-uid-1" {
		t.Errorf("ожидался firebase-uid-1, получен %q", uid)
	}
	if uid := UIDFromContext(context.Background()); uid != "" {
		t.Errorf("ожидалась пустая строка, получено %q", uid)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret"

func newAuth(t *testing.T) *JWTAuth {
	t.Helper()
	a, err := NewJWTAuth(testSecret, "docdesk", time.Second, zap.NewNop())
	require.NoError(t, err)
	return a
}

// echoCaller responds with the caller's id so tests can see what reached the
// handler.
func echoCaller(w http.ResponseWriter, r *http.Request) {
	c := ClaimsFromContext(r.Context())
	if c == nil {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(c.Username))
}

func TestNewJWTAuthRequiresSecret(t *testing.T) {
	_, err := NewJWTAuth("", "", 0, zap.NewNop())
	assert.Error(t, err)
}

func TestJWTAuthMiddleware(t *testing.T) {
	a := newAuth(t)
	h := a.Middleware()(http.HandlerFunc(echoCaller))

	valid, err := a.Sign(Claims{UserID: 7, Username: "alice", Email: "alice@example.com"}, time.Hour)
	require.NoError(t, err)
	expired, err := a.Sign(Claims{UserID: 7, Username: "alice"}, -time.Hour)
	require.NoError(t, err)

	other, err := NewJWTAuth("another-secret", "docdesk", 0, zap.NewNop())
	require.NoError(t, err)
	foreign, err := other.Sign(Claims{UserID: 7}, time.Hour)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "7",
			Issuer:    "elsewhere",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			Issuer:    "docdesk",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", "bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusForbidden},
		{"basic", "Basic dXNlcjpwYXNz", http.StatusForbidden},
		{"empty token", "Bearer ", http.StatusForbidden},
		{"garbage", "Bearer not-a-jwt", http.StatusForbidden},
		{"expired", "Bearer " + expired, http.StatusForbidden},
		{"wrong key", "Bearer " + foreign, http.StatusForbidden},
		{"wrong issuer", "Bearer " + wrongIssuer, http.StatusForbidden},
		{"non numeric subject", "Bearer " + badSubject, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "alice", rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"FORBIDDEN"`)
			}
		})
	}
}

func TestParseClaims(t *testing.T) {
	a := newAuth(t)
	token, err := a.Sign(Claims{UserID: 3, Username: "root", Email: "root@example.com", IsStaff: true}, time.Minute)
	require.NoError(t, err)

	c, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, &Claims{UserID: 3, Username: "root", Email: "root@example.com", IsStaff: true}, c)
}

func TestRequireStaff(t *testing.T) {
	h := RequireStaff(http.HandlerFunc(echoCaller))

	for _, tt := range []struct {
		name   string
		claims *Claims
		status int
	}{
		{"anonymous", nil, http.StatusForbidden},
		{"regular user", &Claims{UserID: 1, Username: "alice"}, http.StatusForbidden},
		{"staff", &Claims{UserID: 2, Username: "admin", IsStaff: true}, http.StatusOK},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.claims != nil {
				req = req.WithContext(WithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := chi.NewRouter()
	r.Use(RequestLogger(zap.New(core)))
	r.Use(Metrics)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/fail", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/9", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	ctx := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusCreated), ctx["status"])
	assert.Equal(t, int64(2), ctx["bytes"])
	assert.Equal(t, "/items/9", ctx["path"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
}

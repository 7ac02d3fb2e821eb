// Package middleware holds the chi middleware stack of the API: bearer token
// authentication, access logging and Prometheus metrics.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apierrors "github.com/dharsanguruparan/docdesk/internal/api/errors"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// Claims is the authenticated caller.
type Claims struct {
	UserID   int64
	Username string
	Email    string
	IsStaff  bool
}

// TokenClaims is the JWT payload the API accepts. The subject carries the
// numeric user id.
type TokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
	IsStaff           bool   `json:"is_staff,omitempty"`
}

// JWTAuth validates HS256 bearer tokens.
type JWTAuth struct {
	secret []byte
	issuer string
	leeway time.Duration
	logger *zap.Logger
}

// NewJWTAuth builds the middleware. An empty secret is rejected so the API
// never runs unauthenticated.
func NewJWTAuth(secret, issuer string, leeway time.Duration, logger *zap.Logger) (*JWTAuth, error) {
	if secret == "" {
		return nil, errors.New("auth: empty jwt secret")
	}
	return &JWTAuth{
		secret: []byte(secret),
		issuer: issuer,
		leeway: leeway,
		logger: logger.With(zap.String("component", "jwt_auth")),
	}, nil
}

// Middleware rejects requests without a valid token with 403 and stores the
// caller's Claims in the request context.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				apierrors.Forbidden(w, "authentication credentials were not provided")
				return
			}

			claims, err := j.Parse(strings.TrimSpace(token))
			if err != nil {
				j.logger.Debug("token rejected", zap.Error(err), zap.String("remote_addr", r.RemoteAddr))
				apierrors.Forbidden(w, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// Parse validates a raw token and converts it to Claims.
func (j *JWTAuth) Parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.leeway),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	tc := &TokenClaims{}
	if _, err := jwt.ParseWithClaims(raw, tc, func(*jwt.Token) (any, error) { return j.secret, nil }, opts...); err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(tc.Subject, 10, 64)
	if err != nil || id <= 0 {
		return nil, errors.New("auth: subject is not a user id")
	}
	return &Claims{UserID: id, Username: tc.PreferredUsername, Email: tc.Email, IsStaff: tc.IsStaff}, nil
}

// Sign issues a token for the given caller. The CLI and tests use it.
func (j *JWTAuth) Sign(c Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	tc := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(c.UserID, 10),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		PreferredUsername: c.Username,
		Email:             c.Email,
		IsStaff:           c.IsStaff,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(j.secret)
}

// WithClaims returns ctx carrying c.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the caller or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey).(*Claims)
	return c
}

// RequireStaff lets only staff callers through. Must run after JWTAuth.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := ClaimsFromContext(r.Context())
		if c == nil || !c.IsStaff {
			apierrors.Forbidden(w, "you do not have permission to perform this action")
			return
		}
		next.ServeHTTP(w, r)
	})
}

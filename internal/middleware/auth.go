package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Ashik-Muhammed/zygreen/internal/models"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller placed in ctx by Authenticate.
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(models.Identity)
	return id, ok && id.UserID != ""
}

// Claims is the token payload: sub carries the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

var ErrInvalidToken = errors.New("invalid token")

// Authenticator verifies HS256 bearer tokens issued by the identity provider.
type Authenticator struct {
	secret []byte
	issuer string
	leeway time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

func NewAuthenticator(secret, issuer string, leeway time.Duration) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		issuer: issuer,
		leeway: leeway,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
		now: time.Now,
	}
}

// Issue signs a token for id. It backs the token CLI command and tests.
func (a *Authenticator) Issue(id models.Identity, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		Role: id.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) Parse(raw string) (models.Identity, error) {
	var claims Claims
	tok, err := a.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil || !tok.Valid {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	now := a.now()
	switch {
	case !claims.VerifyExpiresAt(now.Add(-a.leeway), true):
		return models.Identity{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	case !claims.VerifyNotBefore(now.Add(a.leeway), false):
		return models.Identity{}, fmt.Errorf("%w: not valid yet", ErrInvalidToken)
	case a.issuer != "" && !claims.VerifyIssuer(a.issuer, true):
		return models.Identity{}, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
	case claims.Subject == "":
		return models.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	case !models.IsValidRole(claims.Role):
		return models.Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return models.Identity{UserID: claims.Subject, Role: models.Role(claims.Role)}, nil
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller's identity in the request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := strings.TrimSpace(r.Header.Get("Authorization"))
		if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
			deny(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		id, err := a.Parse(strings.TrimSpace(authz[7:]))
		if err != nil {
			deny(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			deny(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if !id.IsAdmin() {
			deny(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   http.StatusText(status),
		"message": message,
	})
}

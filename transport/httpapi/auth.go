package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-permissions/pkg/authctx"
)

// Claims is the bearer token payload issued by the external identity layer.
type Claims struct {
	TenantID  string `json:"tenant_id"`
	RoleID    string `json:"role_id,omitempty"`
	ActorType string `json:"actor_type,omitempty"`
	jwt.RegisteredClaims
}

// ActorContext returns the identity payload carried by the claims.
func (c Claims) ActorContext() *authctx.ActorContext {
	return &authctx.ActorContext{
		ActorID:  c.Subject,
		Role:     c.ActorType,
		TenantID: c.TenantID,
		RoleID:   c.RoleID,
	}
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct {
	secret []byte
	issuer string
}

// NewAuthenticator returns a verifier. An empty issuer skips the iss check.
func NewAuthenticator(secret []byte, issuer string) *Authenticator {
	return &Authenticator{secret: secret, issuer: issuer}
}

// Middleware rejects requests without a valid token and stores the actor in
// the request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r)
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}
		actor, err := a.Verify(token)
		if err != nil {
			writeUnauthorized(w, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(authctx.WithActorContext(r.Context(), actor)))
	})
}

// Verify parses the token and returns its actor payload. The payload must
// convert to a valid actor reference.
func (a *Authenticator) Verify(raw string) (*authctx.ActorContext, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	actor := claims.ActorContext()
	if _, err := authctx.ActorRefFromActorContext(actor); err != nil {
		return nil, err
	}
	return actor, nil
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(token), nil
}

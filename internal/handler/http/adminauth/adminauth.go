// Package adminauth authenticates the admin-triggered ingest endpoint and
// any other admin-guarded paths. The specification treats the HTTP router
// and authentication middleware as an external collaborator it only
// sketches a contract for (a static bearer token plus admin/editor email
// allow-lists), not a login system, so this package stays a thin
// credential check rather than the full multi-user provider a login flow
// would need.
package adminauth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"kynewsroom/internal/config"
	"kynewsroom/internal/handler/http/respond"
)

type ctxKey string

const identityKey ctxKey = "adminauth.identity"

// Roles an authenticated identity can carry.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// AccessEmailHeader is the identity header an SSO edge proxy (Cloudflare
// Access or equivalent) is expected to inject once it has authenticated the
// caller, matching spec's "Cloudflare-Access header" mention.
const AccessEmailHeader = "Cf-Access-Authenticated-User-Email"

// Identity is the authenticated admin/editor caller attached to the request
// context by Middleware.
type Identity struct {
	Email string
	Role  string
}

// Middleware builds admin-auth middleware from the configured token and
// email allow-lists. Three credential forms are accepted, checked in order:
//
//  1. AccessEmailHeader naming an allow-listed email: the edge has already
//     authenticated the caller via SSO, so the email alone is trusted.
//  2. "Authorization: Bearer <ADMIN_TOKEN>": the static fallback bearer,
//     granting the admin role with no email identity.
//  3. "Authorization: Bearer <JWT>", HS256-signed with ADMIN_TOKEN as the
//     secret and carrying a "sub" email claim checked against the
//     allow-lists, for callers that want a short-lived scoped credential
//     instead of sharing the raw token.
//
// A request matching none of these is rejected with 401.
func Middleware(cfg config.AdminAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticate(r, cfg)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, errors.New("unauthorized"))
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.AdminAuthConfig) (Identity, error) {
	if email := r.Header.Get(AccessEmailHeader); email != "" {
		role, ok := roleFor(email, cfg)
		if !ok {
			return Identity{}, errors.New("email not on admin or editor allow-list")
		}
		return Identity{Email: email, Role: role}, nil
	}

	token, ok := bearerToken(r)
	if !ok {
		return Identity{}, errors.New("missing bearer token")
	}

	if cfg.Token != "" && token == cfg.Token {
		return Identity{Role: RoleAdmin}, nil
	}

	return authenticateJWT(token, cfg)
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, prefix) {
		return "", false
	}
	return strings.TrimPrefix(authz, prefix), true
}

func authenticateJWT(tokenString string, cfg config.AdminAuthConfig) (Identity, error) {
	if cfg.Token == "" {
		return Identity{}, errors.New("admin token not configured")
	}
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(cfg.Token), nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid claims")
	}
	if exp, ok := claims["exp"].(float64); !ok || int64(exp) < time.Now().Unix() {
		return Identity{}, errors.New("token expired")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return Identity{}, errors.New("invalid sub claim")
	}
	role, ok := roleFor(sub, cfg)
	if !ok {
		return Identity{}, errors.New("subject not on admin or editor allow-list")
	}
	return Identity{Email: sub, Role: role}, nil
}

func roleFor(email string, cfg config.AdminAuthConfig) (string, bool) {
	for _, e := range cfg.AdminEmails {
		if strings.EqualFold(e, email) {
			return RoleAdmin, true
		}
	}
	for _, e := range cfg.EditorEmails {
		if strings.EqualFold(e, email) {
			return RoleEditor, true
		}
	}
	return "", false
}

// FromContext returns the identity Middleware attached to the request
// context, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

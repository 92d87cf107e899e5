// Package middleware provides HTTP middleware for the inventory service.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Identity carries the caller identity extracted from the bearer token.
// Token signatures are validated by the external auth component before
// requests reach this service, so claims are read without verification.
type Identity struct {
	// Subject is the token subject; for device-facing endpoints this is
	// the device id.
	Subject string
	// Tenant selects the storage namespace; empty means the default one.
	Tenant string
}

type identityCtxKey struct{}

const tenantClaim = "tenant"

// ExtractIdentity is middleware that decodes the Authorization bearer token
// (when present) and stores subject and tenant claims in the request context.
// Requests without a token pass through with no identity set.
func ExtractIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		idty, err := ParseIdentity(raw)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), idty)))
	})
}

// ParseIdentity decodes the token claims without signature verification.
func ParseIdentity(raw string) (*Identity, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, err
	}

	idty := &Identity{}
	if sub, err := claims.GetSubject(); err == nil {
		idty.Subject = sub
	}
	if t, ok := claims[tenantClaim].(string); ok {
		idty.Tenant = t
	}
	return idty, nil
}

// WithIdentity returns a context carrying the given identity.
func WithIdentity(ctx context.Context, idty *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, idty)
}

// IdentityFromContext returns the identity stored in ctx, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	idty, _ := ctx.Value(identityCtxKey{}).(*Identity)
	return idty
}

// TenantFromContext returns the tenant id stored in ctx, or "" for the
// default namespace.
func TenantFromContext(ctx context.Context) string {
	if idty := IdentityFromContext(ctx); idty != nil {
		return idty.Tenant
	}
	return ""
}

// WithTenant returns a context scoped to the given tenant namespace,
// preserving any existing subject.
func WithTenant(ctx context.Context, tenant string) context.Context {
	idty := IdentityFromContext(ctx)
	next := &Identity{Tenant: tenant}
	if idty != nil {
		next.Subject = idty.Subject
	}
	return WithIdentity(ctx, next)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return parts[len(parts)-1]
}

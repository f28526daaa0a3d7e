// Principal resolution for all routes. Identity verification happens upstream
// (App Service / reverse proxy easy-auth); this middleware only surfaces who
// the caller is, falling back to bearer-token claims and finally to a fixed
// development principal.
package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/bps-ai-services/boatchat/internal/api/ctxkeys"
	"github.com/bps-ai-services/boatchat/internal/infra/config"
)

// Proxy-injected identity headers.
const (
	headerPrincipalID   = "X-Ms-Client-Principal-Id"
	headerPrincipalName = "X-Ms-Client-Principal-Name"
)

// Development principal used when no identity reaches the backend.
const (
	devPrincipalID   = "00000000-0000-0000-0000-000000000000"
	devPrincipalName = "testusername@constoso.com"
)

// Principal reads the caller's identity from the proxy headers (or, when
// configured, from a bearer token) and injects it into the request context
// along with the content-safety user blob.
func Principal(cfg *config.Settings, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerPrincipalID)
			name := r.Header.Get(headerPrincipalName)

			if id == "" && cfg.Auth.Enabled && cfg.Auth.JWTSecret != "" {
				if claimID, claimName, ok := claimsFromBearer(r, cfg.Auth.JWTSecret); ok {
					id, name = claimID, claimName
				} else {
					log.Debug("bearer token present but unusable, falling back to dev principal")
				}
			}
			if id == "" {
				id, name = devPrincipalID, devPrincipalName
			}

			ctx := r.Context()
			ctx = ctxkeys.WithValue(ctx, ctxkeys.UserID, id)
			ctx = ctxkeys.WithValue(ctx, ctxkeys.UserName, name)
			if cfg.DefenderEnabled {
				ctx = ctxkeys.WithValue(ctx, ctxkeys.DefenderUserJSON, defenderUserJSON(id, r))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// claimsFromBearer parses "Authorization: Bearer <token>" and returns the
// sub/name claims. It never rejects the request; a bad token just means the
// caller stays anonymous.
func claimsFromBearer(r *http.Request, secret string) (id, name string, ok bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	token, err := jwt.Parse(strings.TrimPrefix(header, prefix), func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", "", false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", false
	}
	id, _ = claims["sub"].(string)
	name, _ = claims["name"].(string)
	return id, name, id != ""
}

// defenderUserJSON is the opaque user-context blob passed through to the
// completion provider when the content-safety integration is enabled.
func defenderUserJSON(userID string, r *http.Request) string {
	// chi's RealIP middleware has already rewritten RemoteAddr.
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	blob, err := json.Marshal(map[string]string{
		"EndUserId": userID,
		"SourceIp":  ip,
	})
	if err != nil {
		return ""
	}
	return string(blob)
}

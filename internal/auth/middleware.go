package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/freeeve/kingdom-capitals/internal/logger"
)

type contextKey string

const hostIDKey contextKey = "host_id"

var (
	errNoCredentials = errors.New("missing authorization header")
	errMalformed     = errors.New("invalid authorization format")
	errRejected      = errors.New("invalid or expired token")
)

// RequireHost admits only requests carrying a host token signed by jwtMgr.
// The host that sent a game event is then available to handlers through
// HostIDFromContext.
func RequireHost(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	log := logger.Component("auth")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err == nil {
				var claims *Claims
				if claims, err = jwtMgr.ValidateToken(token); err == nil {
					ctx := context.WithValue(r.Context(), hostIDKey, claims.HostID)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				err = errRejected
			}
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Host request rejected")
			unauthorized(w, err)
		})
	}
}

// bearerToken pulls the token out of "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errNoCredentials
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errMalformed
	}
	return token, nil
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + err.Error() + `"}`))
}

// HostIDFromContext returns the host that authenticated the request, or "".
func HostIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(hostIDKey).(string)
	return id
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/gaslink-africa/gaslink-backend/api/responses"
	pkgauth "github.com/gaslink-africa/gaslink-backend/pkg/auth"
	"github.com/gaslink-africa/gaslink-backend/pkg/config"
	pkgerrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
	"github.com/gaslink-africa/gaslink-backend/pkg/logger"
	"github.com/gaslink-africa/gaslink-backend/pkg/types"
)

// Auth validates a bearer token and seeds the request context with the
// authenticated principal.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if !claims.Role.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid actor role"))
				return
			}

			principal := types.Principal{
				UserID: claims.UserID,
				Role:   claims.Role,
				Phone:  claims.Phone,
			}
			ctx := WithPrincipal(r.Context(), principal)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id":    principal.UserID.String(),
					"actor_role": principal.Role.String(),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

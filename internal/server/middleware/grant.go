package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/server/handlers"
	"github.com/iudanet/gophcollab/pkg/api"
)

// GrantMiddleware проверяет grant токен gatekeeper'а и кладет ключ документа
// и identity в контекст. Без секрета запрос пропускается как есть, и
// handlers доверяют заголовкам gatekeeper'а.
func GrantMiddleware(logger *slog.Logger, cfg handlers.GrantConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := grantToken(r)
			if !ok {
				logger.Warn("Missing grant", "path", r.URL.Path)
				handlers.SendError(logger, w, "missing grant", http.StatusUnauthorized)
				return
			}

			claims, err := handlers.ValidateGrant(cfg, token)
			if err != nil {
				logger.Warn("Invalid grant", "error", err)
				handlers.SendError(logger, w, "invalid grant", http.StatusUnauthorized)
				return
			}

			if key := mux.Vars(r)["key"]; key != "" && key != claims.DocumentKey {
				logger.Warn("Grant issued for another document",
					"doc", key,
					"grant_doc", claims.DocumentKey)
				handlers.SendError(logger, w, "grant does not cover this document", http.StatusForbidden)
				return
			}

			identity := claims.Identity()
			logger.Debug("Grant accepted", "doc", claims.DocumentKey, "user_id", identity.UserID)

			ctx := handlers.WithGrant(r.Context(), models.DocumentKey(claims.DocumentKey), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// grantToken берет токен из "Authorization: Bearer <token>", а для
// браузерных websocket клиентов из query параметра
func grantToken(r *http.Request) (string, bool) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	token := r.URL.Query().Get(api.QueryToken)
	return token, token != ""
}

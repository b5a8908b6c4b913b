package middleware

import (
	"bufio"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/felixge/httpsnoop"

	"github.com/iudanet/gophcollab/pkg/api"
)

// LoggingMiddleware создает middleware для логирования HTTP запросов.
// Логирует метод, путь, статус, время выполнения, размер ответа.
// Для websocket запрос логируется после закрытия соединения со статусом 101
// и длительностью всей сессии.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hijacked := false
			// httpsnoop сохраняет http.Hijacker, иначе upgrade не пройдет
			wrapped := httpsnoop.Wrap(w, httpsnoop.Hooks{
				Hijack: func(hijack httpsnoop.HijackFunc) httpsnoop.HijackFunc {
					return func() (net.Conn, *bufio.ReadWriter, error) {
						hijacked = true
						return hijack()
					}
				},
			})

			m := httpsnoop.CaptureMetrics(next, wrapped, r)

			status := m.Code
			if hijacked {
				status = http.StatusSwitchingProtocols
			}

			// Определяем уровень логирования на основе статуса
			logLevel := slog.LevelInfo
			if status >= 500 {
				logLevel = slog.LevelError
			} else if status >= 400 {
				logLevel = slog.LevelWarn
			}

			logger.Log(r.Context(), logLevel, "HTTP request",
				"method", r.Method,
				"path", sanitizeURL(r.URL),
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
				"status", status,
				"duration_ms", m.Duration.Milliseconds(),
				"bytes_written", m.Written,
			)
		})
	}
}

// sanitizeURL возвращает путь с query, в котором скрыт grant токен
func sanitizeURL(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}

	query := u.Query()
	if query.Has(api.QueryToken) {
		query.Set(api.QueryToken, "***")
	}
	return u.Path + "?" + query.Encode()
}

// LoggingWithSkip создает middleware с возможностью пропуска определенных путей
// Полезно для health checks и других эндпоинтов с высокой частотой запросов
func LoggingWithSkip(logger *slog.Logger, skipPaths []string) func(http.Handler) http.Handler {
	skipMap := make(map[string]bool)
	for _, path := range skipPaths {
		skipMap[path] = true
	}

	return func(next http.Handler) http.Handler {
		logged := LoggingMiddleware(logger)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipMap[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			logged.ServeHTTP(w, r)
		})
	}
}

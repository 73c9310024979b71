package httpserver

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/and161185/authgate/internal/limiter"
)

// New wires routes and middleware into the root handler. The global gate
// covers every route; the sensitive gate additionally covers registration
// and login.
func New(h *Handlers, global, sensitive limiter.Limiter, log *zap.Logger) http.Handler {
	sensitiveGate := RateLimit(sensitive, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Health)
	mux.Handle("POST /api/auth/register", sensitiveGate(http.HandlerFunc(h.Register)))
	mux.Handle("POST /api/auth/login", sensitiveGate(http.HandlerFunc(h.Login)))
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("POST /api/auth/refresh-token", h.RefreshToken)
	mux.HandleFunc("GET /api/auth/google", h.GoogleLogin)
	mux.HandleFunc("GET /api/auth/google/callback", h.GoogleCallback)
	mux.HandleFunc("GET /api/auth/me", h.Me)

	return chain(mux,
		Recover(log),
		Logging(log),
		SecurityHeaders(),
		RateLimit(global, log),
	)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/wadjakorntonsri/custom-links/pkg/config"
	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

// NewRouter creates and configures the main application router. A nil
// metrics handler leaves /metrics unrouted.
func NewRouter(cfg *config.Config, service ports.LinkStore, logger *slog.Logger, metrics http.Handler) http.Handler {
	h := NewHTTPHandler(service, logger)
	mw := NewMiddleware(cfg, logger)
	authHandler := NewAuthHandler(cfg, service, logger)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)
	if cfg.AuthTestMode {
		mux.HandleFunc("POST /auth/test/login", authHandler.TestLogin)
	}

	// Every other path is a short link
	mux.HandleFunc("/", h.Redirect)

	// Protected Routes
	api := http.NewServeMux()
	api.HandleFunc("POST /api/v1/create/{path...}", h.Create)
	api.HandleFunc("GET /api/v1/info/{path...}", h.Info)
	api.HandleFunc("POST /api/v1/update/target/{path...}", h.UpdateTarget)
	api.HandleFunc("POST /api/v1/update/owner/{path...}", h.UpdateOwner)
	api.HandleFunc("DELETE /api/v1/delete/{path...}", h.Delete)
	api.HandleFunc("GET /api/v1/user/links", h.UserLinks)
	api.HandleFunc("GET /api/v1/search/target", h.LinksToTarget)
	api.HandleFunc("GET /api/v1/search/links", h.SearchLinks)
	api.HandleFunc("GET /api/v1/search/targets", h.SearchTargets)
	api.HandleFunc("GET /api/v1/complete", h.Complete)

	mux.Handle("/api/v1/", mw.AuthMiddleware(api))

	return mw.Logging(mux)
}

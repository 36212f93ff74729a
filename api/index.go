package handler

import (
	"context"
	"net/http"
	"os"

	"github.com/wadjakorntonsri/custom-links/pkg/adapters/handler"
	"github.com/wadjakorntonsri/custom-links/pkg/config"
	"github.com/wadjakorntonsri/custom-links/pkg/core/services"
)

var mux http.Handler

func init() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := config.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	// Note: On Vercel, a local sqlite file is ephemeral. Use STORE_BACKEND=redis
	// or a remote libsql DATABASE_URL.
	store, _, err := config.OpenStore(context.Background(), cfg, nil)
	if err != nil {
		panic(err)
	}

	service := services.NewLinkService(store, logger, cfg.ServiceOptions())
	mux = handler.NewRouter(cfg, service, logger, nil)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}

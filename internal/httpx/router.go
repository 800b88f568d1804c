package httpx

import (
	"net/http"

	"github.com/you/go-airfare-oracle/internal/auth"
	"github.com/you/go-airfare-oracle/internal/config"
)

// NewRouter wires the public and JWT protected routes behind request logging.
func NewRouter(cfg *config.Config, api *API) http.Handler {
	publicMux := http.NewServeMux()
	publicMux.HandleFunc("POST /auth/login", auth.LoginHandler(cfg))
	publicMux.HandleFunc("GET /health", Health)

	protectedMux := http.NewServeMux()
	api.Register(protectedMux)

	return loggingMiddleware(auth.JWTMiddleware(publicMux, protectedMux, cfg))
}

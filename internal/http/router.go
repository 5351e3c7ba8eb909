package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/rvaz/eqledger/internal/http/ledger"
)

func New(ledgerV1 *ledger.Handler, jwtSecret string) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		if jwtSecret != "" {
			r.Use(RequireBearerToken(jwtSecret))
		}

		r.Use(middleware.AllowContentType("application/json"))
		ledgerV1.Routes(r)
	})

	return router
}

package http

import (
	"net/http"
	"time"

	"drillbi-quiz/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewAPIRouter mounts the quiz API behind bearer verification.
func NewAPIRouter(api *APIHandler, signer *auth.Signer, origins []string) http.Handler {
	r := newBaseRouter(origins)
	r.Route("/api/v2", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(signer.Middleware)
		r.Post("/quiz/start", api.Start)
		r.Get("/quiz/next", api.Next)
		r.Post("/quiz/submit", api.Submit)
		r.Post("/explain", api.Explain)
	})
	return r
}

// NewFeedRouter serves the presentation feed of a local quiz host.
func NewFeedRouter(ws *WSHandler, origins []string) http.Handler {
	r := newBaseRouter(origins)
	r.Get("/ws", ws.ServeWS)
	r.Get("/state", ws.ServeState)
	return r
}

func newBaseRouter(origins []string) chi.Router {
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

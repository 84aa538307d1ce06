package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pcanellas/jornada-sync/handlers"
)

// SetupRoutes wires the table UI facade. Every route is device-local
// traffic; the shared store is never exposed through here.
func SetupRoutes(router *chi.Mux, session *handlers.SessionHandler, ws *handlers.WebSocketHandler, corsOrigin string) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", session.GetHealth)
	router.Get("/state", session.GetState)
	router.Get("/standings", session.GetStandings)
	router.Get("/pairs/{pairNumber}/opponents", session.GetOpponents)
	router.Post("/draw", session.PostDraw)

	router.Route("/tournament", func(r chi.Router) {
		r.Post("/setup", session.PostSetup)
		r.Post("/reset", session.PostReset)
	})

	router.Route("/matches", func(r chi.Router) {
		r.Post("/start", session.PostStartMatch)
		r.Post("/live", session.PostLiveScore)
		r.Post("/finish", session.PostFinishMatch)
	})

	router.Get("/ws", ws.ServeWs)
}

package routes

import (
	"net/http"

	"github.com/Dosada05/volley-tournament/docs"
	"github.com/Dosada05/volley-tournament/handlers"
	"github.com/Dosada05/volley-tournament/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Dependencies struct {
	Authenticator     *middleware.Authenticator
	TournamentHandler *handlers.TournamentHandler
	WebSocketHandler  *handlers.WebSocketHandler
	MetricsHandler    http.Handler
	AllowedOrigins    []string
}

func SetupRoutes(router chi.Router, deps Dependencies) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if deps.MetricsHandler != nil {
		router.Handle("/metrics", deps.MetricsHandler)
	}
	router.Get("/swagger/doc.json", docs.DocJSON)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	router.Get("/ws/tournaments/{tournamentID}", deps.WebSocketHandler.ServeWs)

	th := deps.TournamentHandler
	router.Route("/tournaments", func(r chi.Router) {
		r.With(deps.Authenticator.Authenticate).Post("/", th.CreateHandler)

		r.Route("/{tournamentID}", func(r chi.Router) {
			// Публичные маршруты
			r.Get("/", th.GetByIDHandler)
			r.Get("/matches-by-round", th.MatchesByRoundHandler)
			r.Get("/standings", th.StandingsHandler)

			r.Group(func(r chi.Router) {
				r.Use(deps.Authenticator.Authenticate)

				r.Post("/join", th.CreateJoinRequestHandler)
				r.Put("/join", th.HandleJoinRequestHandler)
				r.Put("/matches/{matchID}", th.SubmitResultHandler)
				r.Put("/matches/{matchID}/teams", th.AssignTeamsHandler)
				r.Post("/generate", th.GenerateStructureHandler)
			})
		})
	})

	router.With(deps.Authenticator.Authenticate).Put("/matches/{matchID}", th.SubmitResultHandler)
}

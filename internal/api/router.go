package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/resumai-be/internal/api/handlers"
	"github.com/isdelr/resumai-be/internal/auth"
	"github.com/isdelr/resumai-be/internal/services"
	"github.com/isdelr/resumai-be/internal/storage"
	"github.com/isdelr/resumai-be/internal/websocket"
)

// RouterOptions holds everything the HTTP layer depends on.
type RouterOptions struct {
	Manager        *auth.Manager
	Cookie         auth.CookieOptions
	Resumes        services.ResumeServiceProvider
	Analysis       services.AnalysisServiceProvider
	Events         services.EventServiceProvider
	Uploader       storage.Uploader
	Hub            *websocket.Hub
	Health         handlers.Pinger
	AllowedOrigins []string
	MaxUploadBytes int64
}

// NewRouter creates and configures a new Chi router.
func NewRouter(opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(opts.Manager)
	resumeHandler := handlers.NewResumeHandler(opts.Resumes, opts.Analysis, opts.Uploader, opts.MaxUploadBytes)
	eventHandler := handlers.NewEventHandler(opts.Events)
	wsHandler := handlers.NewWebSocketHandler(opts.Hub, opts.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(opts.Health)

	r.Get("/healthz", healthHandler.Check)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(opts.Cookie))

		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/session", authHandler.Session)
		})

		// Everything below needs a live session.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(opts.Manager))

			r.Get("/ws", wsHandler.Serve)

			r.Route("/resumes", func(r chi.Router) {
				r.Get("/", resumeHandler.List)
				r.Post("/", resumeHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", resumeHandler.Get)
					r.Get("/files/{kind}", resumeHandler.File)
				})
			})

			r.Get("/events", eventHandler.GetRecent)
		})
	})

	return r
}

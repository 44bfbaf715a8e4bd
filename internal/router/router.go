package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/aiarcade/aiarcade/internal/api/auth"
	"github.com/aiarcade/aiarcade/internal/api/blog"
	"github.com/aiarcade/aiarcade/internal/api/dashboard"
	"github.com/aiarcade/aiarcade/internal/api/tools"
	"github.com/aiarcade/aiarcade/internal/api/user"
)

// Config contains dependencies needed for the router setup.
type Config struct {
	AuthHandler            *auth.AuthHandler
	UserHandler            *user.UserHandler
	ToolsHandler           *tools.ToolsHandler
	BlogHandler            *blog.BlogHandler
	DashboardHandler       *dashboard.DashboardHandler
	AuthenticateMiddleware func(http.Handler) http.Handler
	MetricsHandler         http.Handler
	AllowedOrigins         []string
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {

		// Public routes: no JWT required.
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/verify-email", cfg.AuthHandler.VerifyEmail)
			r.Put("/auth/verify-email", cfg.AuthHandler.ResendVerification)
			r.Post("/auth/reset-password", cfg.AuthHandler.RequestPasswordReset)
			r.Put("/auth/reset-password", cfg.AuthHandler.ConfirmPasswordReset)
			// /auth/me inspects the bearer token itself so it can answer
			// authenticated:false instead of 401.
			r.Get("/auth/me", cfg.AuthHandler.Me)

			r.Get("/auth/{provider}", cfg.AuthHandler.BeginOAuth)
			r.Get("/auth/{provider}/callback", cfg.AuthHandler.OAuthCallback)

			r.Get("/tools", cfg.ToolsHandler.ListTools)
			r.Get("/tools/categories", cfg.ToolsHandler.ListCategories)
			r.Get("/tools/{slug}", cfg.ToolsHandler.GetTool)

			r.Get("/blog/posts", cfg.BlogHandler.ListPosts)
			r.Get("/blog/posts/{slug}", cfg.BlogHandler.GetPost)
			r.Get("/blog/posts/{slug}/comments", cfg.BlogHandler.GetComments)
		})

		// Protected routes: JWT required.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/profile", cfg.UserHandler.GetProfile)
			r.Patch("/profile", cfg.UserHandler.UpdateProfile)

			r.Post("/tools", cfg.ToolsHandler.CreateTool)
			r.Put("/tools/{id}/favorite", cfg.ToolsHandler.Favorite)
			r.Delete("/tools/{id}/favorite", cfg.ToolsHandler.Unfavorite)

			r.Post("/blog/posts", cfg.BlogHandler.CreatePost)
			r.Post("/blog/posts/{slug}/comments", cfg.BlogHandler.AddComment)

			r.Get("/dashboard", cfg.DashboardHandler.GetSummary)
		})
	})

	return r
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Dependencies aggregates collaborators required by the HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Videos        VideoStore
	Subscriptions SubscriptionStore
	Tokens        TokenService
	Media         MediaStore
	Limiter       RateLimiter

	UploadDir  string
	PublicDir  string
	CORSOrigin string
}

// NewRouter builds the chi router: CORS, static assets, and all API routes.
func NewRouter(deps Dependencies) http.Handler {
	health := HealthHandler{}
	users := UserHandler{
		Users:     deps.Users,
		Tokens:    deps.Tokens,
		Media:     deps.Media,
		UploadDir: deps.UploadDir,
	}
	videos := VideoHandler{
		Videos:    deps.Videos,
		Media:     deps.Media,
		UploadDir: deps.UploadDir,
	}
	subscriptions := SubscriptionHandler{
		Subscriptions: deps.Subscriptions,
		Users:         deps.Users,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{deps.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", health.Handle)

	if deps.PublicDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(deps.PublicDir))))
	}

	r.Route("/api/v1/users", func(r chi.Router) {
		r.With(rateLimit(deps.Limiter, "register")).Post("/register", users.Register)
		r.With(rateLimit(deps.Limiter, "login")).Post("/login", users.Login)
		r.Post("/refresh-token", users.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(deps.Tokens))
			r.Post("/logout", users.Logout)
			r.Get("/me", users.CurrentUser)
			r.Post("/change-password", users.ChangePassword)
			r.Patch("/update-details", users.UpdateDetails)
			r.Patch("/avatar", users.UpdateAvatar)
			r.Patch("/cover-image", users.UpdateCoverImage)
		})
	})

	r.Route("/api/v1/videos", func(r chi.Router) {
		r.Get("/", videos.List)
		r.With(maybeAuth(deps.Tokens)).Get("/{videoID}", videos.Get)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(deps.Tokens))
			r.Post("/", videos.Create)
			r.Patch("/{videoID}/toggle-publish", videos.TogglePublish)
		})
	})

	r.Route("/api/v1/subscriptions", func(r chi.Router) {
		r.Get("/{channelID}/subscribers", subscriptions.Subscribers)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(deps.Tokens))
			r.Get("/me", subscriptions.SubscribedChannels)
			r.Post("/{channelID}", subscriptions.Subscribe)
			r.Delete("/{channelID}", subscriptions.Unsubscribe)
		})
	})

	return r
}

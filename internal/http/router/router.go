package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/blogverse/blogverse/internal/health"
	"github.com/blogverse/blogverse/internal/http/handler"
	"github.com/blogverse/blogverse/internal/http/middleware"
	"github.com/blogverse/blogverse/internal/http/response"
	"github.com/blogverse/blogverse/internal/security"
)

type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	UserHandler    *handler.UserHandler
	StoryHandler   *handler.StoryHandler
	CommentHandler *handler.CommentHandler
	FollowHandler  *handler.FollowHandler
	TagHandler     *handler.TagHandler
	JWTManager     *security.JWTManager
	CORSOrigins    []string
	Readiness      *health.ProbeRunner
	EnableOTelHTTP bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	requireAuth := middleware.Authenticate(dep.JWTManager)
	optionalAuth := middleware.OptionalAuthenticate(dep.JWTManager)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.Data(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.Data(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "dependencies are not ready")
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign-up", dep.AuthHandler.SignUp)
			r.Post("/sign-in", dep.AuthHandler.SignIn)
			r.Post("/verify-email", dep.AuthHandler.VerifyEmail)
			r.Post("/resend-verification", dep.AuthHandler.ResendVerification)
			r.Post("/forgot-password", dep.AuthHandler.ForgotPassword)
			r.Post("/reset-password", dep.AuthHandler.ResetPassword)
			r.With(requireAuth).Get("/me", dep.AuthHandler.Me)
		})

		r.Route("/user", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Put("/me", dep.UserHandler.UpdateProfile)
				// Avatar uploads carry image payloads past the 1MB default.
				r.With(middleware.BodyLimit(6 << 20)).Post("/me/avatar", dep.UserHandler.UploadAvatar)
				r.Delete("/me/avatar", dep.UserHandler.DeleteAvatar)
			})
			r.Get("/{id}", dep.UserHandler.GetByID)
			r.With(optionalAuth).Get("/{id}/profile", dep.FollowHandler.Profile)
			r.With(requireAuth).Post("/{id}/follow", dep.FollowHandler.Follow)
			r.With(requireAuth).Delete("/{id}/follow", dep.FollowHandler.Unfollow)
			r.Get("/{id}/followers", dep.FollowHandler.Followers)
			r.Get("/{id}/following", dep.FollowHandler.Following)
			r.With(requireAuth).Get("/{id}/is-following", dep.FollowHandler.IsFollowing)
		})

		r.Route("/stories", func(r chi.Router) {
			r.Get("/", dep.StoryHandler.Feed)
			r.With(requireAuth).Post("/", dep.StoryHandler.Create)
			r.With(optionalAuth).Get("/s/{slug}", dep.StoryHandler.GetBySlug)
			r.With(requireAuth).Put("/{id}", dep.StoryHandler.Update)
			r.With(requireAuth).Delete("/{id}", dep.StoryHandler.Delete)
			r.With(requireAuth).Post("/{id}/clap", dep.StoryHandler.Clap)
			r.Get("/{id}/comments", dep.CommentHandler.ListByStory)
			r.With(requireAuth).Post("/{id}/comments", dep.CommentHandler.Create)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/{id}", dep.CommentHandler.Get)
			r.Get("/{id}/replies", dep.CommentHandler.ListReplies)
			r.With(requireAuth).Put("/{id}", dep.CommentHandler.Update)
			r.With(requireAuth).Delete("/{id}", dep.CommentHandler.Delete)
			r.With(requireAuth).Post("/{id}/clap", dep.CommentHandler.Clap)
		})

		r.Get("/tags", dep.TagHandler.List)
		r.With(requireAuth).Get("/feed/following", dep.StoryHandler.FollowingFeed)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}

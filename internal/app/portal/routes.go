// Package portal собирает веб-портал: сессию браузера, охрану разделов по ролям,
// обработчики разделов ученика, наставника и администратора и подписку на
// события бронирований.
package portal

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/speakup/internal/api/handlers/health"
	"github.com/magabrotheeeer/speakup/internal/apiclient"
	"github.com/magabrotheeeer/speakup/internal/cache"
	"github.com/magabrotheeeer/speakup/internal/config"
	"github.com/magabrotheeeer/speakup/internal/http/handlers/admin"
	"github.com/magabrotheeeer/speakup/internal/http/handlers/auth/google"
	"github.com/magabrotheeeer/speakup/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/speakup/internal/http/handlers/auth/logout"
	"github.com/magabrotheeeer/speakup/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/speakup/internal/http/handlers/learner"
	"github.com/magabrotheeeer/speakup/internal/http/handlers/mentor"
	"github.com/magabrotheeeer/speakup/internal/http/middlewarectx"
	"github.com/magabrotheeeer/speakup/internal/lib/reqlog"
	"github.com/magabrotheeeer/speakup/internal/models"
	"github.com/magabrotheeeer/speakup/internal/session"
)

// Deps - зависимости маршрутов портала.
type Deps struct {
	API       *apiclient.Client
	Cache     cache.Cache
	CacheTTL  time.Duration
	Sessions  *session.CookieStore
	RateLimit config.RateLimit
	CSRF      config.CSRF
}

// RegisterRoutes регистрирует все маршруты портала.
func RegisterRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	r.Use(
		middleware.RequestID,
		reqlog.Stdout(),
		middleware.Recoverer,
	)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", health.New(logger, d.API).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(
			middlewarectx.SessionMiddleware(middlewarectx.SessionOptions{
				Store: d.Sessions,
				API:   d.API,
				Cache: d.Cache,
				TTL:   d.CacheTTL,
			}, logger),
			middlewarectx.CSRFMiddleware(logger, d.CSRF),
		)

		loginHandler := login.New(logger, d.API)
		googleHandler := google.New(logger, d.API)
		logoutHandler := logout.New(logger)

		r.Get("/", loginHandler.Page)
		r.Get("/login", loginHandler.Page)
		r.Get("/session", logoutHandler.State)
		r.Post("/logout", logoutHandler.ServeHTTP)
		r.Get("/auth/google", googleHandler.Start)
		r.Get("/auth/callback", googleHandler.Callback)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, d.RateLimit))
			r.Post("/login", loginHandler.ServeHTTP)
			r.Post("/register", register.New(logger, d.API).ServeHTTP)
		})

		learnerHandler := learner.New(logger)
		r.Route("/learner", func(r chi.Router) {
			r.Use(middlewarectx.RequireRole(logger, models.RoleLearner))
			r.Get("/", learnerHandler.Dashboard)
			r.Get("/mentors", learnerHandler.Mentors)
			r.Get("/mentors/{id}/slots", learnerHandler.Slots)
			r.Post("/bookings", learnerHandler.Book)
			r.Post("/bookings/{id}/cancel", learnerHandler.Cancel)
		})

		mentorHandler := mentor.New(logger)
		r.Route("/mentor", func(r chi.Router) {
			r.Use(middlewarectx.RequireRole(logger, models.RoleMentor))
			r.Get("/", mentorHandler.Dashboard)
			r.Get("/slots", mentorHandler.Slots)
			r.Post("/slots", mentorHandler.CreateSlot)
			r.Put("/profile", mentorHandler.Profile)
			r.Post("/bookings/{id}/accept", mentorHandler.Accept)
			r.Post("/bookings/{id}/reject", mentorHandler.Reject)
			r.Post("/bookings/{id}/cancel", mentorHandler.Cancel)
		})

		adminHandler := admin.New(logger)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin))
			r.Get("/", adminHandler.Mentors)
			r.Get("/mentors", adminHandler.Mentors)
			r.Post("/mentors/{id}/{action}", adminHandler.Moderate)
			r.Get("/users", adminHandler.Users)
			r.Post("/users/{id}/status", adminHandler.SetStatus)
			r.Post("/users/{id}/role", adminHandler.SetRole)
			r.Get("/reports/mentors.xlsx", adminHandler.Report)
		})
	})
}

// Package sandbox собирает REST-бэкенд платформы: хранилище, сервисы, маршруты и фоновые задачи.
package sandbox

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	adminhandlers "github.com/magabrotheeeer/speakup/internal/api/handlers/admin"
	authhandlers "github.com/magabrotheeeer/speakup/internal/api/handlers/auth"
	bookinghandlers "github.com/magabrotheeeer/speakup/internal/api/handlers/bookings"
	"github.com/magabrotheeeer/speakup/internal/api/handlers/health"
	mentorhandlers "github.com/magabrotheeeer/speakup/internal/api/handlers/mentors"
	"github.com/magabrotheeeer/speakup/internal/api/middlewarectx"
	_ "github.com/magabrotheeeer/speakup/internal/docs" // swagger spec
	"github.com/magabrotheeeer/speakup/internal/lib/reqlog"
	"github.com/magabrotheeeer/speakup/internal/models"
	authservice "github.com/magabrotheeeer/speakup/internal/services/auth"
	mentorservice "github.com/magabrotheeeer/speakup/internal/services/mentor"
	moderationservice "github.com/magabrotheeeer/speakup/internal/services/moderation"
	reservationservice "github.com/magabrotheeeer/speakup/internal/services/reservation"
)

// Services - всё, что нужно маршрутам sandbox.
type Services struct {
	Auth        *authservice.AuthService
	Mentors     *mentorservice.MentorService
	Reservation *reservationservice.ReservationService
	Moderation  *moderationservice.ModerationService
	Health      health.Pinger
}

// RouteOptions - настройки маршрутов, не относящиеся к сервисам.
type RouteOptions struct {
	PortalCallbackURL string
	SecureCookie      bool
	AllowedOrigins    []string
}

// RegisterRoutes регистрирует все маршруты sandbox.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services, opts RouteOptions) {
	r.Use(
		middleware.RequestID,
		reqlog.Stdout(),
		middleware.Recoverer,
		middleware.URLFormat,
		cors.New(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}).Handler,
	)

	auth := authhandlers.New(logger, s.Auth, opts.PortalCallbackURL, opts.SecureCookie)
	mentors := mentorhandlers.New(logger, s.Mentors, s.Reservation)
	bookings := bookinghandlers.New(logger, s.Reservation)
	admin := adminhandlers.New(logger, s.Moderation)

	// Открытые конечные точки
	r.Post("/auth/register", auth.Register)
	r.Post("/auth/login", auth.Login)
	r.Get("/auth/google/login", auth.GoogleLogin)
	r.Get("/auth/google/callback", auth.GoogleCallback)
	r.Post("/auth/google/exchange", auth.GoogleExchange)
	r.Get("/health", health.New(logger, s.Health).ServeHTTP)

	// Группа с JWT аутентификацией
	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))

		r.Get("/users/me", auth.Me)
		r.Get("/mentors", mentors.List)
		r.Get("/mentors/{id}/slots", mentors.Slots)
		r.Put("/bookings/{id}/cancel", bookings.Cancel)

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RequireRole(logger, models.RoleMentor))
			r.Post("/mentors/slots", mentors.CreateSlot)
			r.Put("/mentors/profile", mentors.UpdateProfile)
			r.Get("/mentors/bookings", mentors.Bookings)
			r.Put("/mentors/bookings/{id}/accept", mentors.Accept)
			r.Put("/mentors/bookings/{id}/reject", mentors.Reject)
		})

		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RequireRole(logger, models.RoleLearner))
			r.Post("/bookings/create", bookings.Create)
			r.Get("/bookings/me", bookings.Mine)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middlewarectx.RequireRole(logger, models.RoleAdmin))
			r.Get("/mentors", admin.Mentors)
			r.Put("/mentors/{id}/{action}", admin.Moderate)
			r.Get("/users", admin.Users)
			r.Put("/users/{id}/status", admin.SetStatus)
			r.Put("/users/{id}/role", admin.SetRole)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

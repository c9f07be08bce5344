package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/speakup/internal/cache"
	"github.com/magabrotheeeer/speakup/internal/config"
	"github.com/magabrotheeeer/speakup/internal/lib/jwt"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/migrations"
	"github.com/magabrotheeeer/speakup/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/speakup/internal/services/auth"
	mentorservice "github.com/magabrotheeeer/speakup/internal/services/mentor"
	moderationservice "github.com/magabrotheeeer/speakup/internal/services/moderation"
	reservationservice "github.com/magabrotheeeer/speakup/internal/services/reservation"
	schedulerservice "github.com/magabrotheeeer/speakup/internal/services/scheduler"
	"github.com/magabrotheeeer/speakup/internal/storage"
	"github.com/magabrotheeeer/speakup/internal/storage/memory"
)

// Repository - хранилище sandbox. Реализуется PostgreSQL и памятью процесса.
type Repository interface {
	authservice.UserRepository
	mentorservice.Repository
	reservationservice.Repository
	moderationservice.Repository
	Ping(ctx context.Context) error
	Close() error
}

// App - собранный sandbox.
type App struct {
	server    *http.Server
	logger    *slog.Logger
	db        Repository
	scheduler *schedulerservice.SchedulerService
	amqpConn  *amqp.Connection
}

// New собирает sandbox по конфигу. Без строки подключения данные хранятся в памяти
// процесса, без URL RabbitMQ события не публикуются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sandbox.New"

	db, err := openRepository(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var publisher reservationservice.Publisher = rabbitmq.NopPublisher{}
	var conn *amqp.Connection
	if cfg.RabbitMQ.URL != "" {
		conn, err = rabbitmq.Dial(ctx, cfg.RabbitMQ, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ch, err := rabbitmq.OpenChannel(conn, rabbitmq.Topology{Exchange: cfg.RabbitMQ.Exchange})
		if err != nil {
			_ = conn.Close()
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		publisher = rabbitmq.NewPublisher(ch, cfg.RabbitMQ.Exchange, logger)
	} else {
		logger.Warn("rabbitmq url is empty, booking events are not published")
	}

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	var google authservice.GoogleProvider
	if g := authservice.NewGoogleOAuth(cfg.GoogleOAuth); g != nil {
		google = g
	}
	authService := authservice.NewAuthService(db, jwtMaker, google, cache.NewMemory(), logger)
	if cfg.Seed.AdminEmail != "" {
		if err := authService.SeedAdmin(ctx, cfg.Seed.AdminEmail, cfg.Seed.AdminPassword); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	reservationService := reservationservice.NewReservationService(db, publisher, logger)

	services := Services{
		Auth:        authService,
		Mentors:     mentorservice.NewMentorService(db, logger),
		Reservation: reservationService,
		Moderation:  moderationservice.NewModerationService(db, logger),
		Health:      db,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, services, RouteOptions{
		PortalCallbackURL: cfg.GoogleOAuth.PortalCallbackURL,
		SecureCookie:      cfg.Session.Secure,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:    srv,
		logger:    logger,
		db:        db,
		scheduler: schedulerservice.NewSchedulerService(reservationService, cfg.Scheduler.Interval, logger),
		amqpConn:  conn,
	}, nil
}

func openRepository(cfg *config.Config, logger *slog.Logger) (Repository, error) {
	if cfg.StorageConnectionString == "" {
		logger.Warn("storage connection string is empty, using in-memory storage")
		return memory.New(), nil
	}
	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Run запускает HTTP-сервер и планировщик и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	schedCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.scheduler.Run(schedCtx)
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		runErr = a.server.Shutdown(timeoutCtx)
	}

	stopScheduler()
	wg.Wait()
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Error("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	return runErr
}

package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/speakup/internal/apiclient"
	"github.com/magabrotheeeer/speakup/internal/booking"
	"github.com/magabrotheeeer/speakup/internal/cache"
	"github.com/magabrotheeeer/speakup/internal/config"
	"github.com/magabrotheeeer/speakup/internal/lib/sl"
	"github.com/magabrotheeeer/speakup/internal/rabbitmq"
	"github.com/magabrotheeeer/speakup/internal/session"
)

// App - собранный портал.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	cache    cache.Cache
	redis    *cache.Redis
	amqpConn *amqp.Connection
	amqpCh   *amqp.Channel
	queue    string
}

// New собирает портал по конфигу. Без адреса Redis коллекции кэшируются в памяти
// процесса, без URL RabbitMQ чужие изменения видны только после истечения TTL.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.portal.New"

	app := &App{logger: logger, queue: cfg.RabbitMQ.Queue}

	if cfg.Addr != "" {
		redis, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.redis = redis
		app.cache = redis
	} else {
		logger.Warn("redis address is empty, using in-memory cache")
		app.cache = cache.NewMemory()
	}

	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Dial(ctx, cfg.RabbitMQ, logger)
		if err != nil {
			app.closeCache()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ch, err := rabbitmq.OpenChannel(conn, rabbitmq.Topology{
			Exchange: cfg.RabbitMQ.Exchange,
			Queues:   rabbitmq.BookingQueues(cfg.RabbitMQ.Queue),
		})
		if err != nil {
			_ = conn.Close()
			app.closeCache()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.amqpConn, app.amqpCh = conn, ch
	} else {
		logger.Warn("rabbitmq url is empty, cache relies on ttl only")
	}

	if cfg.Session.HashKey == "" {
		logger.Warn("session hash key is empty, sessions will not survive restart")
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		API:      apiclient.New(cfg.API.BaseURL, cfg.API.Timeout, logger),
		Cache:    app.cache,
		CacheTTL: cfg.Cache.TTL,
		Sessions: session.NewCookieStore(session.CookieOptions{
			Name:     cfg.Session.CookieName,
			HashKey:  []byte(cfg.Session.HashKey),
			BlockKey: []byte(cfg.Session.BlockKey),
			MaxAge:   cfg.Session.MaxAge,
			Secure:   cfg.Session.Secure,
		}),
		RateLimit: cfg.RateLimit,
		CSRF:      cfg.CSRF,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// EventHandler возвращает обработчик сообщений шины: событие бронирования
// помечает устаревшими затронутые коллекции. Нечитаемое сообщение
// отбрасывается, чтобы не возвращаться в очередь бесконечно.
func EventHandler(ctx context.Context, c cache.Cache, log *slog.Logger) func([]byte) error {
	return func(body []byte) error {
		ev, err := rabbitmq.DecodeEvent(body)
		if err != nil {
			log.Warn("dropping malformed booking event", sl.Err(err))
			return nil
		}
		if err := booking.InvalidateForEvent(ctx, c, ev); err != nil {
			return err
		}
		log.Debug("cache invalidated by event",
			slog.String("kind", string(ev.Kind)),
			slog.Int64("booking_id", ev.BookingID),
		)
		return nil
	}
}

// Run запускает подписку на события и HTTP-сервер и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	if a.amqpCh != nil {
		if err := rabbitmq.ConsumerMessage(ctx, a.logger, a.amqpCh, a.queue, EventHandler(ctx, a.cache, a.logger)); err != nil {
			a.close()
			return fmt.Errorf("app.portal.Run: %w", err)
		}
		a.logger.Info("booking events consumer started", slog.String("queue", a.queue))
	}

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
	a.close()
	return runErr
}

func (a *App) close() {
	if a.amqpConn != nil {
		if err := a.amqpConn.Close(); err != nil {
			a.logger.Error("failed to close rabbitmq connection", sl.Err(err))
		}
	}
	a.closeCache()
}

func (a *App) closeCache() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kirinyoku/venue-go/internal/config"
	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/events"
	"github.com/kirinyoku/venue-go/internal/gateway/khalti"
	stripegw "github.com/kirinyoku/venue-go/internal/gateway/stripe"
	"github.com/kirinyoku/venue-go/internal/notify"
	"github.com/kirinyoku/venue-go/internal/postgres"
	"github.com/kirinyoku/venue-go/internal/queue"
	"github.com/kirinyoku/venue-go/internal/redis"
	postgresrepo "github.com/kirinyoku/venue-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/venue-go/internal/repository/redis"
	"github.com/kirinyoku/venue-go/internal/service"
	"github.com/kirinyoku/venue-go/internal/service/payment"
	"github.com/kirinyoku/venue-go/internal/service/stats"
	httpgin "github.com/kirinyoku/venue-go/internal/transport/http/gin"
	"github.com/kirinyoku/venue-go/internal/uow"
)

const (
	idemTTL      = 24 * time.Hour
	idemLockTTL  = 60 * time.Second
	shutdownWait = 10 * time.Second
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	worker     *queue.Worker
	closers    []func() error
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	a := &App{cfg: cfg, logger: logger}

	pool, err := postgres.New(ctx, postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: cfg.Postgres.MaxConns,
		MinConns: 2,
		AppName:  "venuego",
		Logger:   logger,
		Trace:    cfg.Postgres.Trace,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: postgres:%w", op, err)
	}
	a.closers = append(a.closers, func() error { pool.Close(); return nil })

	rdb, err := redis.New(ctx, redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: redis:%w", op, err)
	}
	a.closers = append(a.closers, rdb.Close)

	queueOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.QueueDB}
	asynqClient := asynq.NewClient(queueOpt)
	a.closers = append(a.closers, asynqClient.Close)

	publisher, err := a.newPublisher(rdb)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: events:%w", op, err)
	}

	store := postgresrepo.NewStore(pool)
	unit := uow.NewUoW(store)

	gateways := map[domain.PaymentProvider]payment.Gateway{}
	if cfg.Khalti.SecretKey != "" {
		gateways[domain.ProviderKhalti] = khalti.New(khalti.Config{
			BaseURL:     cfg.Khalti.BaseURL,
			SecretKey:   cfg.Khalti.SecretKey,
			FrontendURL: cfg.FrontendURL,
			Timeout:     cfg.GatewayTimeout,
		})
	}
	var webhooks payment.WebhookParser
	if cfg.Stripe.SecretKey != "" {
		sc := stripegw.New(stripegw.Config{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Currency:      cfg.Stripe.Currency,
			FrontendURL:   cfg.FrontendURL,
		})
		gateways[domain.ProviderStripe] = sc
		webhooks = sc
	}

	svcs := service.NewServices(service.Deps{
		UoW:        unit,
		Cache:      redisrepo.New(rdb),
		Limiter:    redisrepo.NewSlidingWindowLimiter(rdb, "booking", cfg.Booking.RateLimit, cfg.Booking.RateWindow),
		Dispatcher: queue.NewDispatcher(asynqClient),
		Publisher:  publisher,
		Gateways:   gateways,
		Webhooks:   webhooks,
	}, service.Config{
		Stats:   stats.Config{CacheTTL: cfg.StatsCacheTTL},
		Payment: payment.Config{GatewayTimeout: cfg.GatewayTimeout},
	}, logger)

	handler := queue.NewNoticeHandler(store.Repos().Reservations(), newNotifier(cfg), logger)
	a.worker = queue.NewWorker(queueOpt, queue.WorkerConfig{}, handler, logger)

	idem := redisrepo.NewIdempotencyStore(rdb, idemTTL, idemLockTTL)
	router := httpgin.NewRouter(svcs, idem, logger, httpgin.CORS(cfg.Server.AllowedOrigins))

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newPublisher prefers RabbitMQ and falls back to redis pub/sub when no
// broker URL is configured.
func (a *App) newPublisher(rdb *goredis.Client) (events.Publisher, error) {
	if a.cfg.RabbitMQ.URL == "" {
		a.logger.Info("RABBITMQ_URL not set, publishing events over redis pub/sub")
		return redis.NewEventsPubSub(rdb), nil
	}

	p, err := events.NewAMQPPublisher(a.cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, p.Close)
	return p, nil
}

func newNotifier(cfg *config.Config) notify.Channels {
	var ch notify.Channels
	if cfg.SMS.APIKey != "" {
		ch.SMS = notify.NewSMSSender(notify.SMSConfig{
			BaseURL:    cfg.SMS.BaseURL,
			APIKey:     cfg.SMS.APIKey,
			SenderID:   cfg.SMS.SenderID,
			Timeout:    cfg.NotifyTimeout,
			RatePerSec: cfg.SMS.RatePerSec,
		})
	}
	if cfg.SMTP.Host != "" {
		ch.Email = notify.NewEmailSender(notify.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Timeout:  cfg.NotifyTimeout,
		})
	}
	return ch
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("notification worker starting")
		if err := a.worker.Start(); err != nil {
			return fmt.Errorf("failed to start worker: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()

		err := a.httpServer.Shutdown(ctx)
		a.worker.Shutdown()
		return err
	})

	return g.Wait()
}

// close releases connections in reverse order of creation.
func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", slog.String("error", err.Error()))
		}
	}
	a.closers = nil
}

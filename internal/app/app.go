package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/GlebRadaev/fundsledger/internal/config"
	"github.com/GlebRadaev/fundsledger/internal/events"
	"github.com/GlebRadaev/fundsledger/internal/handlers"
	"github.com/GlebRadaev/fundsledger/internal/notify"
	"github.com/GlebRadaev/fundsledger/internal/pg"
	"github.com/GlebRadaev/fundsledger/internal/repo"
	"github.com/GlebRadaev/fundsledger/internal/service"
	"github.com/GlebRadaev/fundsledger/internal/service/depositservice"
	"github.com/GlebRadaev/fundsledger/pkg/auth"
	"github.com/GlebRadaev/fundsledger/pkg/clients"
	"github.com/GlebRadaev/fundsledger/pkg/logger"
	"github.com/GlebRadaev/fundsledger/pkg/ratelimit"
)

const shutdownTimeout = 5 * time.Second

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg  *config.Config
	api  *handlers.Handlers
	srv  *service.Services
	repo *repo.Repositories

	pool      *pgxpool.Pool
	redis     *redis.Client
	notifier  *notify.Notifier
	publisher *events.Publisher

	errCh chan error
	wg    sync.WaitGroup
	ready bool
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg := config.New()

	err := logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := getPgxpool(ctx, cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return fmt.Errorf("can't build pgx pool: %w", err)
	}
	if err := pg.RunMigrations(ctx, pool); err != nil {
		zap.L().Error("migrations failed: ", zap.Error(err))
		return fmt.Errorf("can't run migrations: %w", err)
	}
	txManager := pg.NewTXManager(pool)

	a.cfg = cfg
	a.pool = pool
	a.redis = getRedisClient(cfg)
	a.notifier = newNotifier(cfg)
	a.publisher = newPublisher(cfg)

	a.repo = repo.New(pg.New(pool))
	a.srv = service.New(a.repo, service.Options{
		TXManager:     txManager,
		JWT:           auth.NewJWTService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL),
		Hash:          auth.NewHashService(bcrypt.DefaultCost),
		Notifier:      a.notifier,
		Publisher:     a.publisher,
		WelcomeBonus:  cfg.WelcomeBonus,
		ReferralBonus: cfg.ReferralBonus,
		DepositBonus: depositservice.Bonus{
			Percent: cfg.DepositBonusPercent,
			TTL:     cfg.DepositBonusTTL,
		},
	})
	a.api = handlers.New(a.srv, handlers.Options{
		Limiter:        ratelimit.New(a.redis, cfg.RateLimit, cfg.RateWindow),
		TrustedProxies: cfg.TrustedProxies,
		AllowedOrigins: strings.Split(cfg.ClientURL, ","),
		RequestTimeout: cfg.RequestTimeout,
	})

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}

	a.ready = true
	zap.L().Info("all systems started successfully")
	return nil
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		return nil, err
	}
	return dbpool, nil
}

// getRedisClient does not ping: the rate limiter serves requests while Redis is down.
func getRedisClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
	})
}

func newNotifier(cfg *config.Config) *notify.Notifier {
	workers := cfg.NotifierWorkers
	if workers < 1 {
		workers = 1
	}
	if cfg.NotifierURL == "" {
		zap.L().Info("NOTIFIER_URL is empty, notifications go to the log")
		return notify.New(workers)
	}
	return notify.New(workers, notify.NewHTTPSender(cfg.NotifierURL, clients.NewHTTPClient()))
}

func newPublisher(cfg *config.Config) *events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		zap.L().Info("KAFKA_BROKERS is empty, ledger events are not published")
		return events.NewPublisher(nil)
	}
	return events.NewPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.api.InitRoutes(router)
	server := http.Server{
		Addr:              a.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sCtx); err != nil {
			zap.L().Error("http server shutdown failed", zap.Error(err))
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server on port", zap.String("port", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

// close releases the collaborators after the HTTP server has drained, so
// queued notifications and events still go out.
func (a *Application) close() {
	if a.notifier != nil {
		a.notifier.Close()
	}
	if err := a.publisher.Close(); err != nil {
		zap.L().Error("failed to close kafka writer", zap.Error(err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			zap.L().Error("failed to close redis client", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()
	a.close()

	return appErr
}

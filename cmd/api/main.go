package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/campus-market/backend/internal/api/http"
	"github.com/campus-market/backend/internal/api/http/handlers"
	"github.com/campus-market/backend/internal/auth"
	"github.com/campus-market/backend/internal/config"
	"github.com/campus-market/backend/internal/events"
	"github.com/campus-market/backend/internal/mailer"
	"github.com/campus-market/backend/internal/observability"
	"github.com/campus-market/backend/internal/persistence"
	"github.com/campus-market/backend/internal/realtime"
	"github.com/campus-market/backend/internal/repository"
	"github.com/campus-market/backend/internal/service"
	"github.com/campus-market/backend/internal/storage"
	"github.com/campus-market/backend/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init storage", zap.Error(err))
	}

	pool := pg.PoolHandle()
	txManager := repository.NewTxManager(pool)
	userRepo := repository.NewUserRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	kycRepo := repository.NewKYCRepository(pool)
	verificationRepo := repository.NewVerificationRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	imageRepo := repository.NewProductImageRepository(pool)
	addressRepo := repository.NewAddressRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	historyRepo := repository.NewOrderStatusRepository(pool)
	deliveryRepo := repository.NewDeliveryRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	hub := realtime.NewHub(logger)
	defer hub.Close()
	var broadcaster service.Broadcaster = hub
	var bridge *realtime.RedisBridge
	if cfg.Realtime.UseRedis {
		bridge = realtime.NewRedisBridge(redis.Client, cfg.Realtime.RedisChannel, hub, logger)
		if err := bridge.Start(ctx); err != nil {
			logger.Warn("redis bridge unavailable, broadcasting locally", zap.Error(err))
			bridge = nil
		} else {
			broadcaster = bridge
		}
	}

	var sender service.EmailSender
	if cfg.Notification.MailEnabled() {
		m, err := mailer.NewMailer(cfg.Notification)
		if err != nil {
			logger.Fatal("failed to init mailer", zap.Error(err))
		}
		sender = m
	} else {
		logger.Warn("SMTP_HOST not set, emails are logged only")
		sender = mailer.NewLogSender(logger)
	}

	jobs := worker.NewPool(worker.Options{
		Workers:     cfg.Notification.Workers,
		QueueSize:   cfg.Notification.QueueSize,
		JobTimeout:  cfg.Notification.JobTimeout(),
		MaxAttempts: cfg.Notification.MaxAttempts,
		Backoff:     time.Duration(cfg.Notification.RetryBackoffMS) * time.Millisecond,
	}, logger, metrics)
	worker.StartNotificationWorker(jobs, service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  dispatcher,
		Queue:       jobs,
		Mailer:      sender,
		Broadcaster: broadcaster,
		Logger:      logger,
	}))

	sweeper := worker.NewTokenSweeper(tokenRepo, time.Duration(cfg.Auth.TokenSweepSeconds)*time.Second, logger)
	go sweeper.Start(ctx)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	limiter := auth.NewRedisAttemptLimiter(redis.Client, cfg.Auth.MaxCodeAttempts, cfg.Auth.CodeTTL())

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		TxManager:    txManager,
		UserRepo:     userRepo,
		TokenRepo:    tokenRepo,
		SessionRepo:  sessionRepo,
		AdminRepo:    adminRepo,
		Storage:      store,
		Limiter:      limiter,
		TokenManager: tokenManager,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	kycService := service.NewKYCService(service.KYCDependencies{
		TxManager:        txManager,
		UserRepo:         userRepo,
		KYCRepo:          kycRepo,
		VerificationRepo: verificationRepo,
		Storage:          store,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	orderService := service.NewOrderService(service.OrderDependencies{
		TxManager:   txManager,
		OrderRepo:   orderRepo,
		HistoryRepo: historyRepo,
		ProductRepo: productRepo,
		AddressRepo: addressRepo,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	deliveryService := service.NewDeliveryService(service.DeliveryDependencies{
		TxManager:    txManager,
		OrderRepo:    orderRepo,
		HistoryRepo:  historyRepo,
		DeliveryRepo: deliveryRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	productService := service.NewProductService(service.ProductDependencies{
		TxManager:        txManager,
		UserRepo:         userRepo,
		ProductRepo:      productRepo,
		ProductImageRepo: imageRepo,
		Storage:          store,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	addressService := service.NewAddressService(userRepo, addressRepo)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitMB * 1024 * 1024,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Users:          handlers.NewUsersHandler(authService),
		KYC:            handlers.NewKYCHandler(kycService),
		Orders:         handlers.NewOrdersHandler(orderService),
		Products:       handlers.NewProductsHandler(productService),
		Delivery:       handlers.NewDeliveryHandler(deliveryService),
		Addresses:      handlers.NewAddressHandler(addressService),
		AuthMiddleware: auth.NewAuthMiddleware(tokenManager, userRepo, adminRepo, sessionRepo),
		Realtime:       []fiber.Handler{realtime.UpgradeRequired(), hub.Handler()},
		Metrics:        promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sweeper.Stop()
	if err := jobs.Stop(shutdownCtx); err != nil {
		logger.Warn("notification jobs not drained", zap.Error(err))
	}
	if bridge != nil {
		if err := bridge.Close(); err != nil {
			logger.Warn("close redis bridge", zap.Error(err))
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

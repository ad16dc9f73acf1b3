package main

import (
	"context"
	stderrors "errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"barterhub/internal/adapter/api"
	"barterhub/internal/adapter/api/handler"
	apimiddleware "barterhub/internal/adapter/api/middleware"
	"barterhub/internal/adapter/api/router"
	"barterhub/internal/adapter/events"
	"barterhub/internal/adapter/gateway"
	"barterhub/internal/adapter/repository"
	domainrepo "barterhub/internal/domain/repository"
	"barterhub/internal/infrastructure/auth"
	"barterhub/internal/infrastructure/database"
	"barterhub/internal/infrastructure/firebase"
	"barterhub/internal/infrastructure/metrics"
	"barterhub/internal/infrastructure/presence"
	"barterhub/internal/infrastructure/ratelimit"
	"barterhub/internal/infrastructure/storage"
	"barterhub/internal/infrastructure/tracing"
	"barterhub/internal/infrastructure/websocket"
	"barterhub/internal/usecase"
	"barterhub/pkg/config"
	"barterhub/pkg/logger"
	"barterhub/pkg/response"
)

const driverFirestore = "firestore"

type repositories struct {
	users    domainrepo.UserRepository
	listings domainrepo.ListingRepository
	chats    domainrepo.ChatRepository
	messages domainrepo.MessageRepository
	media    domainrepo.MediaRepository
}

// authProvider verifies socket and REST tokens and mints dev tokens.
type authProvider interface {
	usecase.TokenVerifier
	handler.TokenIssuer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger.Init(cfg.Environment)
	defer logger.Sync()
	response.SetExposeDetails(cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment)
	if err != nil {
		logger.Error("Failed to initialize tracing: %v", err)
		os.Exit(1)
	}

	var fb *fbapp.App
	if cfg.AuthProvider == "firebase" || cfg.DBDriver == driverFirestore {
		fb, err = fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, firebaseOptions(cfg)...)
		if err != nil {
			logger.Error("Failed to initialize Firebase: %v", err)
			os.Exit(1)
		}
	}

	var checks []handler.HealthCheck
	repos, closeRepos, check, err := openRepositories(ctx, cfg, fb)
	if err != nil {
		logger.Error("Failed to open repositories: %v", err)
		os.Exit(1)
	}
	defer closeRepos()
	checks = append(checks, check)

	var redisClient redis.UniversalClient
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("Invalid REDIS_URL: %v", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	registry := presence.NewMemoryRegistry()
	var limiter ratelimit.Limiter
	var relay websocket.Relay
	if redisClient == nil {
		local := ratelimit.NewSlidingWindow(cfg.ChatRateLimit, cfg.ChatRateWindow, time.Now)
		local.StartCleanupRoutine(ctx, cfg.ChatRateWindow)
		limiter = local
		logger.Warn("REDIS_URL not set: presence, rate limits and socket deliveries are local to this instance")
	} else {
		registry = presence.NewRedisRegistry(redisClient, "barterhub")
		limiter = ratelimit.NewRedisSlidingWindow(redisClient, "barterhub:ratelimit", cfg.ChatRateLimit, cfg.ChatRateWindow)
		relay = websocket.NewRedisRelay(redisClient, "")
		logger.Info("Presence, rate limits and socket deliveries shared through Redis")
	}

	factory, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize storage: %v", err)
		os.Exit(1)
	}
	defer closeStorage()
	factory.StartHealthMonitor(ctx, cfg.StorageHealthInterval, 15*time.Second)

	authn, err := openAuth(ctx, cfg, fb)
	if err != nil {
		logger.Error("Failed to initialize authentication: %v", err)
		os.Exit(1)
	}

	publisher := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.ServiceName)
	defer publisher.Close()
	logger.Info("Event publisher mode: %s %s", events.PublisherMode(publisher), events.PublisherNoopReason(publisher))

	chatUseCase := usecase.NewChatUseCase(repos.chats, repos.messages, repos.users, repos.listings, repos.media, limiter, publisher)
	mediaUseCase := usecase.NewMediaUseCase(repos.media, repos.listings, factory, cfg.MaxUploadBytes)

	wsManager := websocket.NewManager(relay)
	chatGateway := gateway.NewGateway(wsManager, chatUseCase, authn, repos.users, registry, cfg.TypingTimeout)
	defer chatGateway.Close()
	wsManager.SetDispatcher(chatGateway)
	go func() {
		if err := wsManager.Start(ctx); err != nil {
			logger.Error("WebSocket relay stopped: %v", err)
		}
	}()

	consumer := events.NewConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, chatGateway)
	go func() {
		if err := consumer.Run(ctx); err != nil {
			logger.Error("Notice consumer stopped: %v", err)
		}
	}()

	httpLimiter := apimiddleware.NewRateLimiter(120, time.Minute)
	go httpLimiter.Cleanup(ctx, 10*time.Minute)

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = response.HTTPErrorHandler

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(metrics.HTTPMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(middleware.BodyLimit("64M"))

	handlers := router.Handlers{
		Chat:      handler.NewChatHandler(chatUseCase, chatGateway),
		Media:     handler.NewMediaHandler(mediaUseCase),
		Presence:  handler.NewPresenceHandler(registry),
		Admin:     handler.NewAdminHandler(factory, registry, chatGateway, wsManager),
		Health:    handler.NewHealthHandler(checks...),
		WebSocket: handler.NewWebSocketHandler(wsManager, cfg.AllowedOrigins),
	}
	if cfg.IsDevelopment() {
		handlers.Dev = handler.NewDevTokenHandler(authn, repos.users)
		logger.Warn("Development token endpoint enabled at POST /v1/dev/token")
	}
	router.Setup(e, handlers, apimiddleware.NewAuthMiddleware(authn, repos.users), router.Options{
		WSPath:      cfg.WSPath,
		RateLimiter: httpLimiter,
	})

	go func() {
		logger.Info("Starting server on port %s (socket path %s)", cfg.ServerPort, cfg.WSPath)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed: %v", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Tracing shutdown failed: %v", err)
	}
}

func firebaseOptions(cfg *config.Config) []option.ClientOption {
	if cfg.FirebaseServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))}
	}
	if cfg.FirebaseServiceAccountPath != "" {
		logger.Info("Using Firebase service account from file: %s", cfg.FirebaseServiceAccountPath)
		return []option.ClientOption{option.WithCredentialsFile(cfg.FirebaseServiceAccountPath)}
	}
	logger.Info("Using application default credentials for Firebase")
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config, fb *fbapp.App) (*repositories, func(), handler.HealthCheck, error) {
	if cfg.DBDriver == driverFirestore {
		client, err := fb.Firestore(ctx)
		if err != nil {
			return nil, nil, handler.HealthCheck{}, err
		}
		repos := &repositories{
			users:    repository.NewFirestoreUserRepository(client),
			listings: repository.NewFirestoreListingRepository(client),
			chats:    repository.NewFirestoreChatRepository(client),
			messages: repository.NewFirestoreMessageRepository(client),
			media:    repository.NewFirestoreMediaRepository(client),
		}
		check := handler.HealthCheck{Name: "firestore", Check: func(ctx context.Context) error {
			_, err := client.Collection("users").Limit(1).Documents(ctx).Next()
			if stderrors.Is(err, iterator.Done) {
				return nil
			}
			return err
		}}
		return repos, func() { closeFirestore(client) }, check, nil
	}

	db, err := database.Open(cfg.DBDriver, cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		return nil, nil, handler.HealthCheck{}, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, handler.HealthCheck{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, handler.HealthCheck{}, err
	}

	repos := &repositories{
		users:    repository.NewGormUserRepository(db),
		listings: repository.NewGormListingRepository(db),
		chats:    repository.NewGormChatRepository(db),
		messages: repository.NewGormMessageRepository(db),
		media:    repository.NewGormMediaRepository(db),
	}
	check := handler.HealthCheck{Name: "database", Check: sqlDB.PingContext}
	return repos, func() { sqlDB.Close() }, check, nil
}

func closeFirestore(client *firestore.Client) {
	if err := client.Close(); err != nil {
		logger.Warn("Failed to close Firestore client: %v", err)
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage.Factory, func(), error) {
	rules := storage.Rules{
		RegionBackends: cfg.StorageRegionBackends,
		LargeFileBytes: cfg.StorageLargeFileBytes,
	}
	if cfg.StorageBucket != "" {
		rules.VideoBackend = storage.BackendGCS
		rules.LargeBackend = storage.BackendGCS
	}

	factory := storage.NewFactory(cfg.StorageDefaultBackend, rules)
	local, err := storage.NewLocalBackend(cfg.StorageLocalPath, cfg.StorageLocalBaseURL)
	if err != nil {
		return nil, nil, err
	}
	factory.Register(local)

	if cfg.StorageBucket == "" {
		return factory, func() {}, nil
	}

	gcs, err := storage.NewGCSBackend(ctx, cfg.StorageBucket, cfg.FirebaseServiceAccountPath, cfg.AllowedOrigins)
	if err != nil {
		return nil, nil, err
	}
	factory.Register(gcs)

	// Record initial health so Select skips a backend that is already down.
	for _, status := range factory.HealthCheck(ctx) {
		if !status.Healthy {
			logger.Warn("Storage backend %s unhealthy at startup: %s", status.Backend, status.Error)
		}
	}

	return factory, func() {
		if err := gcs.Close(); err != nil {
			logger.Warn("Failed to close GCS client: %v", err)
		}
	}, nil
}

func openAuth(ctx context.Context, cfg *config.Config, fb *fbapp.App) (authProvider, error) {
	if cfg.AuthProvider == "firebase" {
		client, err := fb.Auth(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info("Verifying tokens with Firebase Auth")
		return firebase.NewFirebaseAuthClient(client), nil
	}

	if cfg.IsProduction() && cfg.JWTSecret == "your-secret-key" {
		logger.Warn("JWT_SECRET is the default value in production")
	}
	logger.Info("Verifying tokens with HS256 JWTs issued by %s", cfg.JWTIssuer)
	return auth.NewJWTAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.JWTExpiry)*time.Second), nil
}

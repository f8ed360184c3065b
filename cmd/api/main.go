package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"petadopt/internal/adapter/api"
	"petadopt/internal/adapter/api/handler"
	apimiddleware "petadopt/internal/adapter/api/middleware"
	"petadopt/internal/adapter/api/router"
	"petadopt/internal/adapter/repository"
	domainrepo "petadopt/internal/domain/repository"
	"petadopt/internal/infrastructure/cache"
	"petadopt/internal/infrastructure/firebase"
	"petadopt/internal/infrastructure/ratelimit"
	"petadopt/internal/infrastructure/websocket"
	"petadopt/internal/usecase"
	"petadopt/pkg/config"
	"petadopt/pkg/logger"
)

type stores struct {
	rooms    domainrepo.ChatRoomRepository
	messages domainrepo.MessageLog
	users    domainrepo.UserRepository
	listings domainrepo.ListingRepository
}

type identity interface {
	usecase.IdentityProvider
	apimiddleware.TokenVerifier
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Configure(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	var (
		st         stores
		provider   identity
		devHandler *handler.DevTokenHandler
	)
	if cfg.StoreBackend == config.BackendMemory {
		logger.Warn("Using the in-memory store with dev tokens; data is lost on restart")
		chatStore := repository.NewMemoryChatStore(clock)
		users := repository.NewMemoryUserRepository()
		listings := repository.NewMemoryListingRepository()
		st = stores{
			rooms:    chatStore,
			messages: chatStore,
			users:    users,
			listings: listings,
		}
		provider = firebase.NewDevTokenVerifier()
		devHandler = handler.NewDevTokenHandler(users, listings)
	} else {
		firestoreClient, authClient := initFirebase(ctx, cfg)
		defer firestoreClient.Close()

		chatRepo := repository.NewFirestoreChatRepository(firestoreClient)
		st = stores{
			rooms:    chatRepo,
			messages: chatRepo,
			users:    repository.NewFirestoreUserRepository(firestoreClient),
			listings: repository.NewFirestoreListingRepository(firestoreClient),
		}
		provider = authClient
	}

	var profileCache cache.ProfileCache
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Printf("Caching profiles in Redis at %s", cfg.RedisAddr)
		profileCache = cache.NewRedisProfileCache(redisClient, cfg.IdentityCacheTTL)
	} else {
		profileCache = cache.NewMemoryProfileCache(clock, cfg.IdentityCacheTTL)
	}

	limiter := ratelimit.NewRateLimiter(clock, map[string]ratelimit.Policy{
		ratelimit.ActionSendMessage: ratelimit.Policy(cfg.MessageRateLimit),
		ratelimit.ActionRequest:     ratelimit.Policy(cfg.RequestRateLimit),
		ratelimit.ActionLogin:       ratelimit.Policy(cfg.LoginRateLimit),
	})
	limiter.StartCleanupRoutine(ctx, 5*time.Minute, 10*time.Minute)

	identityResolver := usecase.NewIdentityResolver(st.users, provider, profileCache)
	chatUseCase := usecase.NewChatUseCase(st.rooms, st.messages, st.listings, identityResolver, limiter)
	aggregator := usecase.NewUnreadAggregator(st.rooms)

	wsManager := websocket.NewManager()

	handlers := &handler.Handlers{
		Chat:      handler.NewChatHandler(chatUseCase),
		WebSocket: handler.NewWebSocketHandler(wsManager, chatUseCase, aggregator, clock, cfg.NotificationIndicatorTTL, cfg.AllowedOrigins),
		Health:    handler.NewHealthHandler(wsManager, cfg.StoreBackend),
		Dev:       devHandler,
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(provider, limiter)
	router.Setup(e, handlers, authMiddleware, limiter)

	go func() {
		log.Printf("Starting server on port %s (%s, store=%s)...", cfg.ServerPort, cfg.Environment, cfg.StoreBackend)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down...")

	wsManager.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

func initFirebase(ctx context.Context, cfg *config.Config) (*firestore.Client, *firebase.FirebaseAuthClient) {
	var opt option.ClientOption
	if cfg.ServiceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		opt = option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON))
	} else if cfg.ServiceAccountPath != "" {
		if _, err := os.Stat(cfg.ServiceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", cfg.ServiceAccountPath)
		}
		log.Printf("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
		opt = option.WithCredentialsFile(cfg.ServiceAccountPath)
	}

	var opts []option.ClientOption
	if opt != nil {
		opts = append(opts, opt)
	} else {
		log.Printf("Using application default credentials")
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}

	return firestoreClient, firebase.NewFirebaseAuthClient(authClient)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"flashconcards-backend/internal/ai"
	"flashconcards-backend/internal/api"
	"flashconcards-backend/internal/config"
	"flashconcards-backend/internal/core"
	"flashconcards-backend/internal/db"
	"flashconcards-backend/internal/middleware"
	"flashconcards-backend/internal/payments"
	"flashconcards-backend/pkg/cache"
	"flashconcards-backend/pkg/messagequeue"
)

func main() {
	// --- 1. Load .env and initialize the logger ---
	// In production, environment variables are set directly.
	release := strings.EqualFold(os.Getenv("GIN_MODE"), "release")
	if !release {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: no .env file loaded:", err)
		}
	}

	var (
		zapLogger *zap.Logger
		err       error
	)
	if release {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	// --- 2. Load application configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to load application configuration", zap.Error(err))
	}
	quotaLocation, err := time.LoadLocation(appConfig.AIQuotaResetTZ)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Invalid AI_QUOTA_RESET_TZ", zap.Error(err))
	}

	// --- 3. Initialize Firebase (Firestore and Auth) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	if err := db.InitFirestore(initCtx, appConfig, zapLogger); err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firestore and Firebase Admin SDK", zap.Error(err))
	}
	firestoreClient := db.GetFirestoreClient()
	firebaseAuthClient := db.GetFirebaseAuthClient()
	if firestoreClient == nil || firebaseAuthClient == nil {
		zapLogger.Fatal("CRITICAL_ERROR: Firebase clients are nil after initialization. Application cannot start.")
	}

	// --- 4. Optional infrastructure: course cache and payment events ---
	var courseCache cache.Cache = cache.NopCache{}
	if appConfig.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(initCtx, cache.NewRedisCacheConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
		}, zapLogger)
		if err != nil {
			zapLogger.Warn("Redis unavailable, course catalog will not be cached", zap.Error(err))
		} else {
			courseCache = redisCache
		}
	}

	var publisher messagequeue.Publisher = messagequeue.NopPublisher{}
	if appConfig.RabbitMQURL != "" {
		rabbit, err := messagequeue.NewRabbitMQPublisher(messagequeue.NewRabbitMQPublisherConfig{URL: appConfig.RabbitMQURL}, zapLogger)
		if err != nil {
			zapLogger.Warn("RabbitMQ unavailable, payment events will not be published", zap.Error(err))
		} else {
			publisher = rabbit
		}
	}

	// --- 5. Repositories ---
	userRepo := db.NewFirestoreUserRepository(firestoreClient)
	courseRepo := db.NewFirestoreCourseRepository(firestoreClient)
	messageRepo := db.NewFirestoreMessageRepository(firestoreClient)
	txnRepo := db.NewFirestoreTransactionRepository(firestoreClient)

	// --- 6. AI orchestration ---
	gemini := ai.NewGeminiClient(appConfig.GeminiAPIKey, appConfig.GeminiBaseURL, appConfig.AIRequestTimeout)
	groq := ai.NewGroqClient(appConfig.GroqAPIKey, appConfig.GroqBaseURL, appConfig.GroqModel, appConfig.AIRequestTimeout)
	if !gemini.Configured() {
		zapLogger.Warn("GEMINI_API_KEY is not set; chat requests will be answered with a configuration notice")
	}
	if !groq.Configured() {
		zapLogger.Info("GROQ_API_KEY is not set; no fallback provider when the Gemini quota runs out")
	}

	orchestrator, err := core.NewOrchestrator(core.OrchestratorConfig{
		Primary:         gemini,
		Secondary:       groq,
		CandidateModels: appConfig.GeminiModelList(),
		SecondaryModel:  appConfig.GroqModel,
		Params: ai.GenerationParams{
			Temperature:     appConfig.AITemperature,
			MaxOutputTokens: appConfig.AIMaxOutputTokens,
		},
		MinInterval:   appConfig.AIMinInterval,
		HistoryLimit:  appConfig.AIHistoryLimit,
		QuotaLocation: quotaLocation,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize AI orchestrator", zap.Error(err))
	}
	sessions := core.NewSessionStore(nil, appConfig.AIMaxSessions)

	// --- 7. Services ---
	courseService := core.NewCourseService(courseRepo, courseCache, appConfig.CourseCacheTTL, zapLogger)
	userService := core.NewUserService(userRepo, courseRepo)
	chatService := core.NewChatService(orchestrator, sessions, messageRepo, userRepo, courseService, core.ChatConfig{
		HistoryLimit: appConfig.AIHistoryLimit,
		MessageTTL:   appConfig.MessageTTL,
	}, zapLogger)
	paymentGateway := payments.NewFunctionsClient(appConfig.PaymentFunctionsBaseURL, 30*time.Second)
	paymentService := core.NewPaymentService(txnRepo, userService, courseService, paymentGateway, publisher, appConfig.PaymentEventsQueue, zapLogger)

	cleaner := core.NewMessageCleaner(messageRepo, sessions, core.MessageCleanerConfig{
		MessageTTL:     appConfig.MessageTTL,
		SessionIdleTTL: appConfig.AISessionIdleTTL,
		Interval:       appConfig.CleanupInterval,
	}, zapLogger)
	cleaner.Start()

	// --- 8. Gin engine and routes ---
	if release {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	router.Use(middleware.CORSMiddleware(appConfig))

	authMW := middleware.NewAuthMiddleware(firebaseAuthClient, userRepo, zapLogger)
	api.SetupRoutes(router, appConfig, zapLogger, authMW, userService, courseService, chatService, paymentService)

	// --- 9. Start HTTP server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	zapLogger.Info("Starting HTTP server", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 10. Graceful shutdown ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	cleaner.Stop()
	if err := courseCache.Close(); err != nil {
		zapLogger.Warn("Error closing course cache", zap.Error(err))
	}
	if err := publisher.Close(); err != nil {
		zapLogger.Warn("Error closing message publisher", zap.Error(err))
	}
	if err := db.CloseFirestore(); err != nil {
		zapLogger.Warn("Error closing Firestore client", zap.Error(err))
	}

	zapLogger.Info("Server exiting gracefully.")
}

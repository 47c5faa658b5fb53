package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flashconcards-backend/internal/config"
	"flashconcards-backend/internal/core"
	"flashconcards-backend/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS) is expected to be applied to router by the caller.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	authMW *middleware.AuthMiddleware,
	userService core.UserService,
	courseService core.CourseService,
	chatService core.ChatService,
	paymentService core.PaymentService,
) {
	authHandler := NewAuthHandler(userService)
	userHandler := NewUserHandler(userService)
	courseHandler := NewCourseHandler(courseService)
	chatHandler := NewChatHandler(chatService)
	paymentHandler := NewPaymentHandler(paymentService, appConfig.PaymentWebhookSecret)

	apiV1 := router.Group("/api/v1")
	{
		users := apiV1.Group("/users", authMW.VerifyToken())
		{
			users.POST("/initialize", authHandler.InitializeUserProfile)
			users.GET("/me", userHandler.GetCurrentUserProfile)
			users.PUT("/me/selected-course", userHandler.SelectCourse)
			users.POST("/me/favorites/:itemId", userHandler.ToggleFavorite)
			users.PUT("/me/study-summary", userHandler.UpdateStudySummary)
		}

		// The catalog is public so the landing page can list courses.
		courses := apiV1.Group("/courses")
		{
			courses.GET("", courseHandler.ListCourses)
			courses.GET("/featured", courseHandler.ListFeatured)
			courses.GET("/:courseId", courseHandler.GetCourse)
			courses.GET("/:courseId/content/:section", authMW.VerifyToken(), courseHandler.GetContent)
		}

		admin := apiV1.Group("/admin", authMW.VerifyToken(), authMW.RequireAdmin())
		{
			admin.POST("/courses", courseHandler.CreateCourse)
			admin.PUT("/courses/:courseId", courseHandler.UpdateCourse)
			admin.DELETE("/courses/:courseId", courseHandler.DeleteCourse)
			admin.PUT("/courses/:courseId/content/:section", courseHandler.SetContent)
		}

		chat := apiV1.Group("/chat/:surface", authMW.VerifyToken())
		{
			chat.GET("/messages", chatHandler.ListMessages)
			chat.POST("/messages", chatHandler.SendMessage)
		}

		apiV1.POST("/sales/chat", chatHandler.AskSales)

		payments := apiV1.Group("/payments")
		{
			// Authenticated by shared secret, not by a user token.
			payments.POST("/webhook", paymentHandler.HandleWebhook)
			payments.POST("/pix", authMW.VerifyToken(), paymentHandler.CreatePixPayment)
			payments.GET("/:transactionId", authMW.VerifyToken(), paymentHandler.GetTransaction)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "FlashConCards backend is healthy."})
	})

	logger.Info("API routes configured under /api/v1 and /health")
}

package core

import (
	"context"

	"flashconcards-backend/internal/models"
)

// Assistant answers questions within an orchestration session. *Orchestrator implements it.
type Assistant interface {
	Ask(ctx context.Context, session *Session, question string, pc PromptContext) Reply
}

// UserService defines the interface for user profile operations.
type UserService interface {
	// GetOrCreate retrieves a user by ID. If the user doesn't exist, it creates a student profile.
	GetOrCreate(ctx context.Context, userID, email, displayName string) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	SelectCourse(ctx context.Context, userID, courseID string) error
	// ToggleFavorite flips the favorite flag of an item and returns the new state.
	ToggleFavorite(ctx context.Context, userID, itemID string) (bool, error)
	UpdateStudySummary(ctx context.Context, userID, summary string) error
	GrantCourse(ctx context.Context, userID, courseID string) error
}

// CourseService defines the interface for course catalog operations.
type CourseService interface {
	ListActive(ctx context.Context) ([]*models.Course, error)
	ListFeatured(ctx context.Context) ([]*models.Course, error)
	Get(ctx context.Context, courseID string) (*models.Course, error)
	GetContent(ctx context.Context, courseID, section string) (*models.CourseContent, error)

	Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error)
	Update(ctx context.Context, courseID string, req models.UpdateCourseRequest) (*models.Course, error)
	Delete(ctx context.Context, courseID string) error
	SetContent(ctx context.Context, courseID, section, text string) (*models.CourseContent, error)
}

// ChatService defines the interface for the AI chat surfaces.
type ChatService interface {
	// SendMessage stores the user's message, asks the assistant and stores its reply.
	SendMessage(ctx context.Context, userID, surface, text string) (*ChatResult, error)
	// ListMessages purges expired messages of the user, then lists the surface's history.
	ListMessages(ctx context.Context, userID, surface string) ([]*models.ChatMessage, error)
	// AskSales answers an anonymous visitor. Nothing is stored.
	AskSales(ctx context.Context, visitorID, text string) (Reply, error)
}

// PaymentService defines the interface for checkout operations.
type PaymentService interface {
	CreatePixPayment(ctx context.Context, userID, email, courseID string) (*PixCheckout, error)
	// ConfirmPayment settles a transaction once; confirming a paid transaction is a no-op.
	ConfirmPayment(ctx context.Context, transactionID, paymentID string) (*models.Transaction, error)
	GetTransaction(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
}

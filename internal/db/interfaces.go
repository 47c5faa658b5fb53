package db

import (
	"context"
	"time"

	"flashconcards-backend/internal/models"
)

// UserRepository defines the interface for user profile storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	SetSelectedCourse(ctx context.Context, userID, courseID string) error
	// SetFavorite adds itemID to the favorites array when favorite is true, removes it otherwise.
	SetFavorite(ctx context.Context, userID, itemID string, favorite bool) error
	SetStudySummary(ctx context.Context, userID, summary string) error
	AddPurchasedCourse(ctx context.Context, userID, courseID string) error
}

// MessageRepository stores chat messages under users/{uid}/messages.
type MessageRepository interface {
	Create(ctx context.Context, userID string, msg *models.ChatMessage) (string, error) // Returns new message ID
	// ListBySurface returns at most limit messages of one surface, oldest first.
	ListBySurface(ctx context.Context, userID, surface string, limit int) ([]*models.ChatMessage, error)
	// DeleteOlderThan removes one user's messages created before cutoff.
	DeleteOlderThan(ctx context.Context, userID string, cutoff time.Time) (int, error)
	// DeleteAllOlderThan removes every user's messages created before cutoff.
	DeleteAllOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// CourseRepository defines the interface for course storage operations.
type CourseRepository interface {
	List(ctx context.Context) ([]*models.Course, error)
	GetByID(ctx context.Context, courseID string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) (string, error) // Returns new course ID
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, courseID string) error
	GetContent(ctx context.Context, courseID, section string) (*models.CourseContent, error)
	SetContent(ctx context.Context, content *models.CourseContent) error
}

// TransactionRepository defines the interface for payment transaction storage operations.
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error // txn.ID must be set
	GetByID(ctx context.Context, transactionID string) (*models.Transaction, error)
	// MarkPaid atomically flips a pending transaction to paid. It reports
	// alreadyPaid=true without writing when the transaction was paid before.
	MarkPaid(ctx context.Context, transactionID, paymentID string, paidAt time.Time) (txn *models.Transaction, alreadyPaid bool, err error)
	SetPaymentID(ctx context.Context, transactionID, paymentID string) error
	// MarkFailed flags a checkout whose charge was never created. Paid transactions are left untouched.
	MarkFailed(ctx context.Context, transactionID string) error
}

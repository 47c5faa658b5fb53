package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flashconcards-backend/internal/db"
	"flashconcards-backend/internal/models"
	"flashconcards-backend/internal/payments"
	"flashconcards-backend/pkg/messagequeue"
)

var (
	// ErrTransactionNotFound is returned when a transaction does not exist or belongs to another user.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrAlreadyPurchased is returned when a user starts a checkout for a course they own.
	ErrAlreadyPurchased = errors.New("course already purchased")
	// ErrCourseNotForSale is returned for inactive or free courses.
	ErrCourseNotForSale = errors.New("course is not for sale")
	// ErrPaymentGateway is returned when the payment functions fail.
	ErrPaymentGateway = errors.New("payment gateway error")
)

// EventTransactionPaid is the type of the event published after a payment settles.
const EventTransactionPaid = "transaction.paid"

// PaymentGateway is the subset of the payment functions used by the service.
type PaymentGateway interface {
	CreatePixPayment(ctx context.Context, req payments.PixRequest) (*payments.PixResponse, error)
	ProvisionAccount(ctx context.Context, req payments.ProvisionRequest) error
}

// PixCheckout is returned to the buyer after a PIX charge was created.
type PixCheckout struct {
	Transaction  *models.Transaction `json:"transaction"`
	QRCode       string              `json:"qrCode"`
	QRCodeBase64 string              `json:"qrCodeBase64,omitempty"`
	TicketURL    string              `json:"ticketUrl,omitempty"`
}

// TransactionPaidEvent is published to the payment events queue.
type TransactionPaidEvent struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transactionId"`
	UserID        string    `json:"uid"`
	CourseID      string    `json:"courseId"`
	Amount        float64   `json:"amount"`
	PaymentID     string    `json:"paymentId,omitempty"`
	PaidAt        time.Time `json:"paidAt"`
}

// paymentService implements the PaymentService interface.
type paymentService struct {
	txnRepo     db.TransactionRepository
	users       UserService
	courses     CourseService
	gateway     PaymentGateway
	publisher   messagequeue.Publisher
	eventsQueue string
	now         func() time.Time
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService. A nil publisher disables event publishing.
func NewPaymentService(
	txnRepo db.TransactionRepository,
	users UserService,
	courses CourseService,
	gateway PaymentGateway,
	publisher messagequeue.Publisher,
	eventsQueue string,
	logger *zap.Logger,
) PaymentService {
	if publisher == nil {
		publisher = messagequeue.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &paymentService{
		txnRepo:     txnRepo,
		users:       users,
		courses:     courses,
		gateway:     gateway,
		publisher:   publisher,
		eventsQueue: eventsQueue,
		now:         time.Now,
		logger:      logger.With(zap.String("component", "payments")),
	}
}

func (s *paymentService) CreatePixPayment(ctx context.Context, userID, email, courseID string) (*PixCheckout, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: an e-mail address is required for PIX payments", ErrInvalidInput)
	}

	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Active || course.Price <= 0 {
		return nil, fmt.Errorf("%w: course '%s'", ErrCourseNotForSale, courseID)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasPurchased(courseID) {
		return nil, fmt.Errorf("%w: course '%s'", ErrAlreadyPurchased, courseID)
	}

	now := s.now().UTC()
	txn := &models.Transaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		Email:         email,
		CourseID:      courseID,
		Status:        models.TransactionPending,
		PaymentMethod: models.PaymentMethodPix,
		Amount:        course.Price,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.txnRepo.Create(ctx, txn); err != nil {
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}

	pix, err := s.gateway.CreatePixPayment(ctx, payments.PixRequest{
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		Description:   course.Name,
		Email:         email,
		CourseID:      courseID,
	})
	if err != nil {
		s.logger.Error("PIX payment creation failed", zap.String("transactionID", txn.ID), zap.Error(err))
		if markErr := s.txnRepo.MarkFailed(ctx, txn.ID); markErr != nil {
			s.logger.Warn("Failed to flag abandoned transaction", zap.String("transactionID", txn.ID), zap.Error(markErr))
		}
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}
	if pix.PaymentID != "" {
		txn.PaymentID = pix.PaymentID
		// The charge exists either way; the webhook carries the ID again when it settles.
		if err := s.txnRepo.SetPaymentID(ctx, txn.ID, pix.PaymentID); err != nil {
			s.logger.Warn("Failed to store gateway payment ID", zap.String("transactionID", txn.ID), zap.Error(err))
		}
	}

	s.logger.Info("PIX payment created", zap.String("transactionID", txn.ID), zap.String("courseID", courseID), zap.Float64("amount", txn.Amount))
	return &PixCheckout{
		Transaction:  txn,
		QRCode:       pix.QRCode,
		QRCodeBase64: pix.QRCodeBase64,
		TicketURL:    pix.TicketURL,
	}, nil
}

func (s *paymentService) ConfirmPayment(ctx context.Context, transactionID, paymentID string) (*models.Transaction, error) {
	txn, err := s.txnRepo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
		}
		return nil, fmt.Errorf("failed to load transaction '%s': %w", transactionID, err)
	}
	if txn.Status == models.TransactionPaid {
		return txn, nil
	}

	if err := s.gateway.ProvisionAccount(ctx, payments.ProvisionRequest{
		TransactionID: txn.ID,
		Email:         txn.Email,
		CourseID:      txn.CourseID,
	}); err != nil {
		s.logger.Error("Account provisioning failed", zap.String("transactionID", txn.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}

	// Grant before MarkPaid: a failed grant must leave the transaction pending for the retry.
	if err := s.users.GrantCourse(ctx, txn.UserID, txn.CourseID); err != nil {
		return nil, fmt.Errorf("failed to grant course '%s' to user '%s': %w", txn.CourseID, txn.UserID, err)
	}

	paid, alreadyPaid, err := s.txnRepo.MarkPaid(ctx, transactionID, paymentID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark transaction '%s' as paid: %w", transactionID, err)
	}
	if alreadyPaid {
		// A concurrent delivery of the same notification won the race.
		return paid, nil
	}

	s.publishPaid(ctx, paid)
	s.logger.Info("Payment confirmed", zap.String("transactionID", paid.ID), zap.String("userID", paid.UserID), zap.String("courseID", paid.CourseID))
	return paid, nil
}

func (s *paymentService) GetTransaction(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	txn, err := s.txnRepo.GetByID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
		}
		return nil, fmt.Errorf("failed to load transaction '%s': %w", transactionID, err)
	}
	// Other users' transactions are reported as missing.
	if txn.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, transactionID)
	}
	return txn, nil
}

func (s *paymentService) publishPaid(ctx context.Context, txn *models.Transaction) {
	event := TransactionPaidEvent{
		Type:          EventTransactionPaid,
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		CourseID:      txn.CourseID,
		Amount:        txn.Amount,
		PaymentID:     txn.PaymentID,
	}
	if txn.PaidAt != nil {
		event.PaidAt = *txn.PaidAt
	}
	body, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("Failed to encode payment event", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, s.eventsQueue, body); err != nil {
		s.logger.Warn("Failed to publish payment event", zap.String("transactionID", txn.ID), zap.Error(err))
	}
}

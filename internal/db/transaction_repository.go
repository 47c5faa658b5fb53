package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"flashconcards-backend/internal/models"
)

const transactionsCollection = "transactions"

// firestoreTransactionRepository implements the TransactionRepository interface using Firestore.
type firestoreTransactionRepository struct {
	client *firestore.Client
}

// NewFirestoreTransactionRepository creates a new instance of firestoreTransactionRepository.
func NewFirestoreTransactionRepository(client *firestore.Client) TransactionRepository {
	return &firestoreTransactionRepository{client: client}
}

// Create stores txn under its pre-assigned ID. The ID doubles as the gateway idempotency key.
func (r *firestoreTransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID == "" {
		return errors.New("transaction ID cannot be empty for Create operation")
	}
	if _, err := r.client.Collection(transactionsCollection).Doc(txn.ID).Create(ctx, txn); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("transaction with ID '%s': %w", txn.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create transaction with ID '%s': %w", txn.ID, err)
	}
	return nil
}

// GetByID retrieves a transaction document by its ID.
func (r *firestoreTransactionRepository) GetByID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	if transactionID == "" {
		return nil, errors.New("transactionID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(transactionsCollection).Doc(transactionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("transaction with ID '%s' not found: %w", transactionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction with ID '%s': %w", transactionID, err)
	}
	return decodeTransaction(docSnap)
}

// MarkPaid runs in a Firestore transaction so concurrent webhook deliveries settle a payment once.
func (r *firestoreTransactionRepository) MarkPaid(ctx context.Context, transactionID, paymentID string, paidAt time.Time) (*models.Transaction, bool, error) {
	if transactionID == "" {
		return nil, false, errors.New("transactionID cannot be empty for MarkPaid operation")
	}
	ref := r.client.Collection(transactionsCollection).Doc(transactionID)

	var (
		txn         *models.Transaction
		alreadyPaid bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("transaction with ID '%s' not found: %w", transactionID, ErrNotFound)
			}
			return err
		}
		txn, err = decodeTransaction(docSnap)
		if err != nil {
			return err
		}
		if txn.Status == models.TransactionPaid {
			alreadyPaid = true
			return nil
		}
		alreadyPaid = false

		updates := []firestore.Update{
			{Path: "status", Value: models.TransactionPaid},
			{Path: "paidAt", Value: paidAt},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		}
		if paymentID != "" {
			updates = append(updates, firestore.Update{Path: "paymentId", Value: paymentID})
			txn.PaymentID = paymentID
		}
		txn.Status = models.TransactionPaid
		txn.PaidAt = &paidAt
		return tx.Update(ref, updates)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to mark transaction '%s' as paid: %w", transactionID, err)
	}
	return txn, alreadyPaid, nil
}

// SetPaymentID records the gateway-side payment ID of a pending checkout.
func (r *firestoreTransactionRepository) SetPaymentID(ctx context.Context, transactionID, paymentID string) error {
	return r.update(ctx, transactionID, []firestore.Update{{Path: "paymentId", Value: paymentID}})
}

// MarkFailed flags a checkout whose charge could not be created. A paid
// transaction is never downgraded.
func (r *firestoreTransactionRepository) MarkFailed(ctx context.Context, transactionID string) error {
	if transactionID == "" {
		return errors.New("transactionID cannot be empty for MarkFailed operation")
	}
	ref := r.client.Collection(transactionsCollection).Doc(transactionID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docSnap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("transaction with ID '%s' not found: %w", transactionID, ErrNotFound)
			}
			return err
		}
		if current, _ := docSnap.DataAt("status"); current == models.TransactionPaid {
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: models.TransactionFailed},
			{Path: "updatedAt", Value: firestore.ServerTimestamp},
		})
	})
	if err != nil {
		return fmt.Errorf("failed to mark transaction '%s' as failed: %w", transactionID, err)
	}
	return nil
}

func (r *firestoreTransactionRepository) update(ctx context.Context, transactionID string, updates []firestore.Update) error {
	if transactionID == "" {
		return errors.New("transactionID cannot be empty for update operation")
	}
	updates = append(updates, firestore.Update{Path: "updatedAt", Value: firestore.ServerTimestamp})
	if _, err := r.client.Collection(transactionsCollection).Doc(transactionID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("transaction with ID '%s' not found: %w", transactionID, ErrNotFound)
		}
		return fmt.Errorf("failed to update transaction with ID '%s': %w", transactionID, err)
	}
	return nil
}

func decodeTransaction(docSnap *firestore.DocumentSnapshot) (*models.Transaction, error) {
	var txn models.Transaction
	if err := docSnap.DataTo(&txn); err != nil {
		return nil, fmt.Errorf("failed to decode transaction data for ID '%s': %w", docSnap.Ref.ID, err)
	}
	txn.ID = docSnap.Ref.ID
	return &txn, nil
}
